package credential

import (
	"crypto/des"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// Wire layout constants for the MS-CHAP data field carried in the
// authentication exchange: one PPP id byte, the server challenge, and a
// fixed 49-byte response block.
const (
	// MSCHAPChallengeLen is the server challenge length for MS-CHAP v1.
	MSCHAPChallengeLen = 8
	// MSCHAPv2ChallengeLen is the authenticator challenge length for v2.
	MSCHAPv2ChallengeLen = 16
	// MSCHAPResponseLen is the response block length for both versions.
	MSCHAPResponseLen = 49
)

var (
	// ErrResponseLength means the data field does not have the exact
	// length the method requires. Returned before any hashing occurs.
	ErrResponseLength = errors.New("invalid challenge/response length")
	// ErrReservedBytes means bytes the protocol declares as reserved
	// were not zero. Treated as a malformed response, not a mismatch.
	ErrReservedBytes = errors.New("nonzero reserved bytes in response")
)

// desEncrypt encrypts one 8-byte block with a 7-byte key expanded to
// 8 bytes by inserting a parity bit position after every 7 key bits.
func desEncrypt(block []byte, key7 []byte) [8]byte {
	key := [8]byte{
		key7[0] & 0xfe,
		(key7[0]&0x01)<<7 | (key7[1]&0xfc)>>1,
		(key7[1]&0x03)<<6 | (key7[2]&0xf8)>>2,
		(key7[2]&0x07)<<5 | (key7[3]&0xf0)>>3,
		(key7[3]&0x0f)<<4 | (key7[4]&0xe0)>>4,
		(key7[4]&0x1f)<<3 | (key7[5]&0xc0)>>5,
		(key7[5]&0x3f)<<2 | (key7[6]&0x80)>>6,
		(key7[6] & 0x7f) << 1,
	}

	var out [8]byte
	cipher, err := des.NewCipher(key[:])
	if err != nil {
		// An 8-byte key can never be rejected by crypto/des.
		return out
	}
	cipher.Encrypt(out[:], block)
	return out
}

// ntPasswordHash is the MD4 hash of the UTF-16LE encoded password
// (RFC 2433 NtPasswordHash).
func ntPasswordHash(password string) [16]byte {
	encoded := utf16.Encode([]rune(password))
	buf := make([]byte, 2*len(encoded))
	for i, u := range encoded {
		binary.LittleEndian.PutUint16(buf[2*i:], u)
	}

	h := md4.New()
	h.Write(buf)

	var hash [16]byte
	copy(hash[:], h.Sum(nil))
	return hash
}

// lmPasswordHash is the LAN Manager hash: the uppercased password,
// truncated and zero-padded to 14 bytes, used as two DES keys over a
// fixed constant (RFC 2433 LmPasswordHash).
func lmPasswordHash(password string) [16]byte {
	var upper [14]byte
	copy(upper[:], strings.ToUpper(password))

	magic := []byte("KGS!@#$%")
	left := desEncrypt(magic, upper[0:7])
	right := desEncrypt(magic, upper[7:14])

	var hash [16]byte
	copy(hash[0:8], left[:])
	copy(hash[8:16], right[:])
	return hash
}

// challengeResponse derives the 24-byte response from an 8-byte
// challenge and a 16-byte password hash: the hash is zero-padded to 21
// bytes and split into three DES keys (RFC 2433 ChallengeResponse).
func challengeResponse(challenge []byte, hash [16]byte) [24]byte {
	var padded [21]byte
	copy(padded[:], hash[:])

	var resp [24]byte
	for i := 0; i < 3; i++ {
		block := desEncrypt(challenge, padded[7*i:7*i+7])
		copy(resp[8*i:], block[:])
	}
	return resp
}

// NTChallengeResponse computes the NT response for an MS-CHAP v1
// exchange.
func NTChallengeResponse(challenge []byte, password string) [24]byte {
	return challengeResponse(challenge, ntPasswordHash(password))
}

// LMChallengeResponse computes the LAN Manager response for an MS-CHAP
// v1 exchange.
func LMChallengeResponse(challenge []byte, password string) [24]byte {
	return challengeResponse(challenge, lmPasswordHash(password))
}

// MSCHAPv2ChallengeHash derives the 8-byte challenge used by the v2 NT
// response: the first 8 bytes of SHA1(peerChallenge || authChallenge ||
// username) (RFC 2759 ChallengeHash).
func MSCHAPv2ChallengeHash(peerChallenge, authChallenge []byte, username string) [8]byte {
	h := sha1.New()
	h.Write(peerChallenge)
	h.Write(authChallenge)
	h.Write([]byte(username))

	var chal [8]byte
	copy(chal[:], h.Sum(nil))
	return chal
}

// MSCHAPv2NTResponse computes the v2 NT response (RFC 2759
// GenerateNTResponse).
func MSCHAPv2NTResponse(authChallenge, peerChallenge []byte, username, password string) [24]byte {
	chal := MSCHAPv2ChallengeHash(peerChallenge, authChallenge, username)
	return challengeResponse(chal[:], ntPasswordHash(password))
}

// VerifyMSCHAP checks an MS-CHAP v1 data field (id byte, 8-byte
// challenge, 49-byte response) against the stored cleartext secret.
// The response's trailing flag byte selects the NT response when
// nonzero, the LAN Manager response otherwise. A data field of any
// other length is rejected with [ErrResponseLength] before hashing.
func VerifyMSCHAP(data []byte, secret string) (bool, error) {
	if len(data) != 1+MSCHAPChallengeLen+MSCHAPResponseLen {
		return false, ErrResponseLength
	}

	challenge := data[1 : 1+MSCHAPChallengeLen]
	resp := data[len(data)-MSCHAPResponseLen:]

	if resp[48] != 0 {
		expected := NTChallengeResponse(challenge, secret)
		return subtle.ConstantTimeCompare(expected[:], resp[24:48]) == 1, nil
	}
	expected := LMChallengeResponse(challenge, secret)
	return subtle.ConstantTimeCompare(expected[:], resp[0:24]) == 1, nil
}

// VerifyMSCHAPv2 checks an MS-CHAP v2 data field (id byte, 16-byte
// authenticator challenge, 49-byte response) against the stored
// cleartext secret. Wrong lengths are rejected with
// [ErrResponseLength] before hashing; nonzero reserved bytes are
// rejected with [ErrReservedBytes], never silently passed.
func VerifyMSCHAPv2(data []byte, username, secret string) (bool, error) {
	if len(data) != 1+MSCHAPv2ChallengeLen+MSCHAPResponseLen {
		return false, ErrResponseLength
	}

	authChallenge := data[1 : 1+MSCHAPv2ChallengeLen]
	resp := data[len(data)-MSCHAPResponseLen:]

	var reserved byte
	for _, b := range resp[16:24] {
		reserved |= b
	}
	if reserved != 0 || resp[48] != 0 {
		return false, ErrReservedBytes
	}

	peerChallenge := resp[0:16]
	expected := MSCHAPv2NTResponse(authChallenge, peerChallenge, username, secret)
	return subtle.ConstantTimeCompare(expected[:], resp[24:48]) == 1, nil
}
