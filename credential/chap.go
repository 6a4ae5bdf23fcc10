package credential

import (
	"crypto/md5"
	"crypto/subtle"
)

// CHAPDigestLen is the length of a CHAP response digest.
const CHAPDigestLen = md5.Size

// CHAPResponse computes the expected CHAP digest for the given PPP id,
// shared secret, and server challenge: MD5(id || secret || challenge).
func CHAPResponse(id byte, secret string, challenge []byte) [CHAPDigestLen]byte {
	h := md5.New()
	h.Write([]byte{id})
	h.Write([]byte(secret))
	h.Write(challenge)

	var digest [CHAPDigestLen]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// VerifyCHAP reports whether the supplied response matches the digest
// computed from the stored secret. The response must be exactly
// [CHAPDigestLen] bytes; anything else fails without hashing.
func VerifyCHAP(id byte, secret string, challenge, response []byte) bool {
	if len(response) != CHAPDigestLen {
		return false
	}
	expected := CHAPResponse(id, secret, challenge)
	return subtle.ConstantTimeCompare(expected[:], response) == 1
}
