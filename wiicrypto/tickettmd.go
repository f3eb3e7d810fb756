package wiicrypto

import "errors"

// ErrUnknownTicketIssuer is returned by ClassifySourceCommonKey when a
// ticket's issuer string doesn't name a known retail or debug ticket
// certificate.
var ErrUnknownTicketIssuer = errors.New("wiicrypto: unknown ticket issuer")

// ClassifySourceCommonKey determines which common key a ticket's title
// key is currently encrypted under, shared by the bank recrypt engine and
// wad.Resign: retail tickets use the Korean key only when their
// common-key index is already 1, debug tickets always use the debug key,
// and any other issuer is unrecognized.
func ClassifySourceCommonKey(t *Ticket) (CommonKeyIndex, error) {
	switch t.Issuer() {
	case IssuerRetailTicket.String():
		if t.CommonKeyIndex() != 1 {
			return CommonKeyRetail, nil
		}
		return CommonKeyKorean, nil
	case IssuerDebugTicket.String():
		return CommonKeyDebug, nil
	default:
		return 0, ErrUnknownTicketIssuer
	}
}

// TargetKey bundles everything the recrypt engine needs to know about a
// destination PKI: which common key encrypts title keys under it, and
// which certificate triple (ticket, TMD, CA) and issuer strings a
// recrypted ticket/TMD must carry afterwards. It is shared by the bank
// recrypt engine and wad.Resign.
type TargetKey struct {
	Name         string
	CommonKey    CommonKeyIndex
	TicketIssuer Issuer
	TMDIssuer    Issuer
	CAIssuer     Issuer
	Debug        bool
}

var (
	TargetRetail = TargetKey{Name: "retail", CommonKey: CommonKeyRetail, TicketIssuer: IssuerRetailTicket, TMDIssuer: IssuerRetailTMD, CAIssuer: IssuerRetailCA}
	TargetKorean = TargetKey{Name: "korean", CommonKey: CommonKeyKorean, TicketIssuer: IssuerRetailTicket, TMDIssuer: IssuerRetailTMD, CAIssuer: IssuerRetailCA}
	TargetVWii   = TargetKey{Name: "vwii", CommonKey: CommonKeyVWii, TicketIssuer: IssuerRetailTicket, TMDIssuer: IssuerRetailTMD, CAIssuer: IssuerRetailCA}
	TargetDebug  = TargetKey{Name: "debug", CommonKey: CommonKeyDebug, TicketIssuer: IssuerDebugTicket, TMDIssuer: IssuerDebugTMD, CAIssuer: IssuerDebugCA, Debug: true}
)

// indexWithinFamily returns the on-disk common-key-index byte for a
// CommonKeyIndex (0=Retail/Debug, 1=Korean, 2=vWii).
func indexWithinFamily(idx CommonKeyIndex) byte {
	switch idx {
	case CommonKeyKorean:
		return 1
	case CommonKeyVWii:
		return 2
	default:
		return 0
	}
}

// RecryptTicket re-encrypts a ticket's title key under target's common
// key given the ticket's already-classified source family, rewriting the
// common-key index and issuer and signing the result. If src equals
// target.CommonKey this is a no-op and changed is false.
func RecryptTicket(t *Ticket, src CommonKeyIndex, target TargetKey) (changed bool, err error) {
	if src == target.CommonKey {
		return false, nil
	}

	iv := t.TitleKeyIV()
	plain, err := DecryptTitleKey(CommonKey(src), iv, t.EncryptedTitleKey())
	if err != nil {
		return false, err
	}
	cipherText, err := EncryptTitleKey(CommonKey(target.CommonKey), iv, plain)
	if err != nil {
		return false, err
	}
	copy(t.EncryptedTitleKey(), cipherText)

	t.SetCommonKeyIndex(indexWithinFamily(target.CommonKey))
	t.SetIssuer(target.TicketIssuer.String())
	putBE32(t.Raw[TicketOffSigType:], uint32(SigRSA2048SHA1))

	if target.Debug {
		if err := RealsignDebug(t.Raw[:], SigRSA2048SHA1, TicketOffIssuer, DebugTicketKey()); err != nil {
			return false, err
		}
	} else if err := Fakesign(t.Raw[:], SigRSA2048SHA1, TicketOffIssuer, TicketOffPadding2); err != nil {
		return false, err
	}

	return true, nil
}

// SignTMD rewrites the TMD issuer for target and signs it (fakesign for
// retail-family targets, realsign with the embedded debug key for debug).
func SignTMD(m *TMD, target TargetKey) error {
	m.SetIssuer(target.TMDIssuer.String())
	putBE32(m.Raw[TMDOffSigType:], uint32(SigRSA2048SHA1))

	if target.Debug {
		return RealsignDebug(m.Raw, SigRSA2048SHA1, TMDOffIssuer, DebugTMDKey())
	}
	return Fakesign(m.Raw, SigRSA2048SHA1, TMDOffIssuer, TMDOffReserved)
}
