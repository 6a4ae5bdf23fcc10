package credential

import (
	"bytes"
	"errors"
	"testing"
)

// Test vectors from RFC 2433 appendix B.
var (
	mschapChallenge = []byte{0x10, 0x2D, 0xB5, 0xDF, 0x08, 0x5D, 0x30, 0x41}
	mschapNTResp    = []byte{
		0x4E, 0x9D, 0x3C, 0x8F, 0x9C, 0xFD, 0x38, 0x5D,
		0x5B, 0xF4, 0xD3, 0x24, 0x67, 0x91, 0x95, 0x6C,
		0xA4, 0xC3, 0x51, 0xAB, 0x40, 0x9A, 0x3D, 0x61,
	}
)

// Test vectors from RFC 2759 section 9.2.
var (
	mschapV2AuthChallenge = []byte{
		0x5B, 0x5D, 0x7C, 0x7D, 0x7B, 0x3F, 0x2F, 0x3E,
		0x3C, 0x2C, 0x60, 0x21, 0x32, 0x26, 0x26, 0x28,
	}
	mschapV2PeerChallenge = []byte{
		0x21, 0x40, 0x23, 0x24, 0x25, 0x5E, 0x26, 0x2A,
		0x28, 0x29, 0x5F, 0x2B, 0x3A, 0x33, 0x7C, 0x7E,
	}
	mschapV2NTResp = []byte{
		0x82, 0x30, 0x9E, 0xCD, 0x8D, 0x70, 0x8B, 0x5E,
		0xA0, 0x8F, 0xAA, 0x39, 0x81, 0xCD, 0x83, 0x54,
		0x42, 0x33, 0x11, 0x4A, 0x3D, 0x85, 0xD6, 0xDF,
	}
)

func TestNTChallengeResponseVector(t *testing.T) {
	got := NTChallengeResponse(mschapChallenge, "MyPw")
	if !bytes.Equal(got[:], mschapNTResp) {
		t.Fatalf("NT response mismatch: got %x, want %x", got, mschapNTResp)
	}
}

func TestMSCHAPv2ChallengeHashVector(t *testing.T) {
	want := []byte{0xD0, 0x2E, 0x43, 0x86, 0xBC, 0xE9, 0x12, 0x26}
	got := MSCHAPv2ChallengeHash(mschapV2PeerChallenge, mschapV2AuthChallenge, "User")
	if !bytes.Equal(got[:], want) {
		t.Fatalf("challenge hash mismatch: got %x, want %x", got, want)
	}
}

func TestMSCHAPv2NTResponseVector(t *testing.T) {
	got := MSCHAPv2NTResponse(mschapV2AuthChallenge, mschapV2PeerChallenge, "User", "clientPass")
	if !bytes.Equal(got[:], mschapV2NTResp) {
		t.Fatalf("v2 NT response mismatch: got %x, want %x", got, mschapV2NTResp)
	}
}

func buildMSCHAPData(challenge []byte, ntResp [24]byte) []byte {
	data := make([]byte, 0, 1+MSCHAPChallengeLen+MSCHAPResponseLen)
	data = append(data, 0x01)
	data = append(data, challenge...)
	resp := make([]byte, MSCHAPResponseLen)
	copy(resp[24:48], ntResp[:])
	resp[48] = 1 // NT response selected
	data = append(data, resp...)
	return data
}

func buildMSCHAPv2Data(authChallenge, peerChallenge []byte, ntResp [24]byte) []byte {
	data := make([]byte, 0, 1+MSCHAPv2ChallengeLen+MSCHAPResponseLen)
	data = append(data, 0x01)
	data = append(data, authChallenge...)
	resp := make([]byte, MSCHAPResponseLen)
	copy(resp[0:16], peerChallenge)
	copy(resp[24:48], ntResp[:])
	data = append(data, resp...)
	return data
}

func TestVerifyMSCHAP(t *testing.T) {
	data := buildMSCHAPData(mschapChallenge, NTChallengeResponse(mschapChallenge, "MyPw"))

	ok, err := VerifyMSCHAP(data, "MyPw")
	if err != nil {
		t.Fatalf("VerifyMSCHAP: %v", err)
	}
	if !ok {
		t.Fatal("valid response must verify")
	}

	ok, err = VerifyMSCHAP(data, "NotMyPw")
	if err != nil {
		t.Fatalf("VerifyMSCHAP: %v", err)
	}
	if ok {
		t.Fatal("wrong secret must not verify")
	}
}

func TestVerifyMSCHAPLMFallback(t *testing.T) {
	data := buildMSCHAPData(mschapChallenge, NTChallengeResponse(mschapChallenge, "MyPw"))
	resp := data[len(data)-MSCHAPResponseLen:]
	resp[48] = 0
	lm := LMChallengeResponse(mschapChallenge, "MyPw")
	copy(resp[0:24], lm[:])

	ok, err := VerifyMSCHAP(data, "MyPw")
	if err != nil {
		t.Fatalf("VerifyMSCHAP: %v", err)
	}
	if !ok {
		t.Fatal("valid LM response must verify")
	}
}

func TestVerifyMSCHAPLength(t *testing.T) {
	_, err := VerifyMSCHAP([]byte{0x01, 0x02, 0x03}, "MyPw")
	if !errors.Is(err, ErrResponseLength) {
		t.Fatalf("got %v, want ErrResponseLength", err)
	}
}

func TestVerifyMSCHAPv2(t *testing.T) {
	data := buildMSCHAPv2Data(mschapV2AuthChallenge, mschapV2PeerChallenge,
		MSCHAPv2NTResponse(mschapV2AuthChallenge, mschapV2PeerChallenge, "User", "clientPass"))

	ok, err := VerifyMSCHAPv2(data, "User", "clientPass")
	if err != nil {
		t.Fatalf("VerifyMSCHAPv2: %v", err)
	}
	if !ok {
		t.Fatal("valid response must verify")
	}

	ok, err = VerifyMSCHAPv2(data, "User", "serverPass")
	if err != nil {
		t.Fatalf("VerifyMSCHAPv2: %v", err)
	}
	if ok {
		t.Fatal("wrong secret must not verify")
	}
}

func TestVerifyMSCHAPv2Length(t *testing.T) {
	data := buildMSCHAPv2Data(mschapV2AuthChallenge, mschapV2PeerChallenge,
		MSCHAPv2NTResponse(mschapV2AuthChallenge, mschapV2PeerChallenge, "User", "clientPass"))

	_, err := VerifyMSCHAPv2(data[:len(data)-1], "User", "clientPass")
	if !errors.Is(err, ErrResponseLength) {
		t.Fatalf("got %v, want ErrResponseLength", err)
	}
}

func TestVerifyMSCHAPv2ReservedBytes(t *testing.T) {
	data := buildMSCHAPv2Data(mschapV2AuthChallenge, mschapV2PeerChallenge,
		MSCHAPv2NTResponse(mschapV2AuthChallenge, mschapV2PeerChallenge, "User", "clientPass"))

	resp := data[len(data)-MSCHAPResponseLen:]
	resp[16] = 0xFF
	if _, err := VerifyMSCHAPv2(data, "User", "clientPass"); !errors.Is(err, ErrReservedBytes) {
		t.Fatalf("got %v, want ErrReservedBytes", err)
	}

	resp[16] = 0
	resp[48] = 0x01
	if _, err := VerifyMSCHAPv2(data, "User", "clientPass"); !errors.Is(err, ErrReservedBytes) {
		t.Fatalf("got %v, want ErrReservedBytes", err)
	}
}
