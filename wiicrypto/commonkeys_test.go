package wiicrypto

import "testing"

func TestCommonKeyForTicketRetail(t *testing.T) {
	tests := []struct {
		name            string
		index           byte
		gameID          string
		wantIdx         CommonKeyIndex
		wantOK          bool
		wantGuessed     bool
	}{
		{"index 0 is retail", 0, "GALE01", CommonKeyRetail, true, false},
		{"index 1 is korean", 1, "GALE01", CommonKeyKorean, true, false},
		{"index 2 is vwii", 2, "GALE01", CommonKeyVWii, true, false},
		{"invalid index with K suffix guesses korean", 9, "SOMEK", CommonKeyKorean, true, true},
		{"invalid index without K suffix guesses retail", 9, "GALE01", CommonKeyRetail, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok, guessed := CommonKeyForTicket(IssuerRetailTicket, tt.index, tt.gameID, false)
			if idx != tt.wantIdx || ok != tt.wantOK || guessed != tt.wantGuessed {
				t.Errorf("CommonKeyForTicket() = (%v, %v, %v), want (%v, %v, %v)",
					idx, ok, guessed, tt.wantIdx, tt.wantOK, tt.wantGuessed)
			}
		})
	}
}

func TestCommonKeyForTicketDebug(t *testing.T) {
	idx, ok, guessed := CommonKeyForTicket(IssuerDebugTicket, 0, "", false)
	if idx != CommonKeyDebug || !ok || guessed {
		t.Errorf("debug index 0: got (%v, %v, %v)", idx, ok, guessed)
	}

	idx, ok, guessed = CommonKeyForTicket(IssuerDebugTicket, 3, "", false)
	if idx != CommonKeyDebug || !ok || !guessed {
		t.Errorf("debug index 3: got (%v, %v, %v)", idx, ok, guessed)
	}
}

func TestCommonKeyForTicketUnencrypted(t *testing.T) {
	idx, ok, guessed := CommonKeyForTicket(IssuerRetailTicket, 0, "GALE01", true)
	if idx != CommonKeyRetail || ok || guessed {
		t.Errorf("unencrypted: got (%v, %v, %v), want (CommonKeyRetail, false, false)", idx, ok, guessed)
	}
}

func TestCommonKeyForTicketUnknownIssuer(t *testing.T) {
	idx, ok, guessed := CommonKeyForTicket(IssuerUnknown, 0, "", false)
	if idx != CommonKeyRetail || ok || guessed {
		t.Errorf("unknown issuer: got (%v, %v, %v), want (CommonKeyRetail, false, false)", idx, ok, guessed)
	}
}

func TestCommonKeyDistinctValues(t *testing.T) {
	seen := map[string]bool{}
	for _, idx := range []CommonKeyIndex{CommonKeyRetail, CommonKeyKorean, CommonKeyVWii, CommonKeyDebug} {
		k := string(CommonKey(idx))
		if seen[k] {
			t.Errorf("CommonKey(%v) collides with another key", idx)
		}
		seen[k] = true
		if len(CommonKey(idx)) != 16 {
			t.Errorf("CommonKey(%v) length = %d, want 16", idx, len(CommonKey(idx)))
		}
	}
}
