// Package crypto exposes the primitives the warden protocol is built on.
//
// Contents
//
//   - Session key expansion (SessionKeyGenerator, DeriveDirectionalKeys):
//     a SHA-1 based generator that both peers seed from the logon session
//     secret, producing the inbound key first and the outbound key second.
//   - Directional stream ciphers (Channel): one independently keyed
//     keystream per traffic direction, RC4 for genuine clients or ChaCha20
//     keyed through HKDF-SHA256.
//   - Short key fingerprints for logs (Fingerprint, KeyFingerprint).
//
// # Notes
//
// Stream positions only ever advance. Frames must be transformed in
// transmission order; a dropped or reordered frame desynchronizes the
// direction for the rest of the session.
package crypto
