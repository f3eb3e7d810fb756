package wiicrypto

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Issuer identifies one certificate in the PKI hierarchy. The issuer
// strings embedded on disk are dashed paths ("Root-CAxxxxxxxx-CPxxxxxxxx"
// and similar); String below returns the exact NUL-padded form stored in
// certificates.
type Issuer int

const (
	IssuerUnknown Issuer = iota
	IssuerRoot
	IssuerRetailCA
	IssuerRetailTicket
	IssuerRetailTMD
	IssuerDebugCA
	IssuerDebugTicket
	IssuerDebugTMD
	IssuerDebugDev
)

func (i Issuer) String() string {
	switch i {
	case IssuerRoot:
		return "Root"
	case IssuerRetailCA:
		return "Root-CA00000001"
	case IssuerRetailTicket:
		return "Root-CA00000001-XS00000003"
	case IssuerRetailTMD:
		return "Root-CA00000001-CP00000004"
	case IssuerDebugCA:
		return "Root-CA00000002"
	case IssuerDebugTicket:
		return "Root-CA00000002-XS00000006"
	case IssuerDebugTMD:
		return "Root-CA00000002-CP00000007"
	case IssuerDebugDev:
		return "Root-CA00000002-MS00000003"
	default:
		return ""
	}
}

// IssuerFromString matches a trimmed issuer field against the known set,
// returning IssuerUnknown if nothing matches.
func IssuerFromString(s string) Issuer {
	for _, i := range []Issuer{
		IssuerRoot, IssuerRetailCA, IssuerRetailTicket, IssuerRetailTMD,
		IssuerDebugCA, IssuerDebugTicket, IssuerDebugTMD, IssuerDebugDev,
	} {
		if i.String() == s {
			return i
		}
	}
	return IssuerUnknown
}

// IsRetail and IsDebug classify an issuer into its PKI family.
func (i Issuer) IsRetail() bool {
	return i == IssuerRetailCA || i == IssuerRetailTicket || i == IssuerRetailTMD
}
func (i Issuer) IsDebug() bool {
	return i == IssuerDebugCA || i == IssuerDebugTicket || i == IssuerDebugTMD || i == IssuerDebugDev
}

// storeCert is one certificate-store row: the full on-disk certificate
// bytes plus the parent's public key needed to verify children signed by
// it, and (for ticket/TMD leaf certs that are actually signed *by* this
// toolkit, i.e. debug) the private key to sign with.
type storeCert struct {
	issuer  Issuer
	bytes   []byte
	priv    *RSAPrivateKey // non-nil for certs this process can sign with (the debug leaves, plus the CAs so the placeholder chain is self-consistent)
}

var (
	certStoreOnce sync.Once
	certStore     map[Issuer]*storeCert

	// debugTicketKey and debugTMDKey are the embedded signing keys used
	// to realsign debug tickets and TMDs. They are synthesized at init
	// alongside the placeholder certificate chain; genuine debug-PKI key
	// material is not shipped with this module.
	debugTicketKey *RSAPrivateKey
	debugTMDKey    *RSAPrivateKey
)

func initCertStore() {
	var err error

	root, rootPriv, err := newSelfSignedCert(IssuerRoot, Issuer(-1), 4096, nil)
	must(err)

	retailCA, retailCAPriv, err := newSelfSignedCert(IssuerRetailCA, IssuerRoot, 2048, rootPriv)
	must(err)
	retailTicket, _, err := newSelfSignedCert(IssuerRetailTicket, IssuerRetailCA, 2048, retailCAPriv)
	must(err)
	retailTMD, _, err := newSelfSignedCert(IssuerRetailTMD, IssuerRetailCA, 2048, retailCAPriv)
	must(err)

	debugCA, debugCAPriv, err := newSelfSignedCert(IssuerDebugCA, IssuerRoot, 2048, rootPriv)
	must(err)
	debugTicket, debugTicketPriv, err := newSelfSignedCert(IssuerDebugTicket, IssuerDebugCA, 2048, debugCAPriv)
	must(err)
	debugTMD, debugTMDPriv, err := newSelfSignedCert(IssuerDebugTMD, IssuerDebugCA, 2048, debugCAPriv)
	must(err)

	debugTicketKey = debugTicketPriv
	debugTMDKey = debugTMDPriv

	// debugDev ("MS", the mastering-server cert) is appended to a debug
	// WAD's certificate chain (CA, TMD, Ticket, MS); wad.Resign is the
	// only consumer.
	debugDev, _, err := newSelfSignedCert(IssuerDebugDev, IssuerDebugCA, 2048, debugCAPriv)
	must(err)

	certStore = map[Issuer]*storeCert{
		IssuerRoot:         {issuer: IssuerRoot, bytes: root, priv: rootPriv},
		IssuerRetailCA:     {issuer: IssuerRetailCA, bytes: retailCA, priv: retailCAPriv},
		IssuerRetailTicket: {issuer: IssuerRetailTicket, bytes: retailTicket},
		IssuerRetailTMD:    {issuer: IssuerRetailTMD, bytes: retailTMD},
		IssuerDebugCA:      {issuer: IssuerDebugCA, bytes: debugCA, priv: debugCAPriv},
		IssuerDebugTicket:  {issuer: IssuerDebugTicket, bytes: debugTicket, priv: debugTicketPriv},
		IssuerDebugTMD:     {issuer: IssuerDebugTMD, bytes: debugTMD, priv: debugTMDPriv},
		IssuerDebugDev:     {issuer: IssuerDebugDev, bytes: debugDev},
	}

	logrus.WithField("component", "wiicrypto").Debug("initialized placeholder certificate store")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Store returns the initialized, process-wide certificate store,
// constructing it on first use.
func Store() map[Issuer]*storeCert {
	certStoreOnce.Do(initCertStore)
	return certStore
}

// Cert returns the raw certificate bytes for issuer, or nil, false if
// unknown.
func Cert(issuer Issuer) ([]byte, bool) {
	c, ok := Store()[issuer]
	if !ok {
		return nil, false
	}
	return c.bytes, true
}

// DebugTicketKey and DebugTMDKey expose the placeholder embedded private
// keys cert_realsign needs for debug-target recrypt.
func DebugTicketKey() *RSAPrivateKey {
	Store()
	return debugTicketKey
}
func DebugTMDKey() *RSAPrivateKey {
	Store()
	return debugTMDKey
}
