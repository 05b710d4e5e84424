package redisx

// Revoked access token: revoked:{jti} -> 1, expires with the token.
const KeyRevokedToken = "revoked:%s"
