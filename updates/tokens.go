/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updates

import (
	"crypto/sha512"
	"encoding/hex"
)

// TokenHashAlgo is the value stored in user_token_auth.hash_algo for hashes made by HashTokenAuth.
const TokenHashAlgo = "sha512"

// HashTokenAuth returns the hex-encoded SHA-512 of the token followed by the installation salt.
// Tokens are looked up by their hash, so the result must be deterministic.
func HashTokenAuth(tokenAuth, salt string) string {
	sum := sha512.Sum512([]byte(tokenAuth + salt))
	return hex.EncodeToString(sum[:])
}
