// Package models defines the account record kept for every principal.
//
// # Record shape
//
// A UserAccount is keyed by a Principal and carries:
//   - Profile: three sections edited independently by the owner
//     (PersonalInfo, SocialLinks, JobPreferences)
//   - Stats: level, experience and medals, written only by the system
//
// # Optional fields
//
// Every profile field is an Opt. Unset is a real state, different from a set
// empty string or a set false, and it survives storage round trips. Partial
// updates (absent / clear / set) are modelled one layer up, in package profile.
//
// # Identity
//
// Principals are opaque byte strings compared byte for byte. Their textual
// form is base32 with a CRC32 prefix, grouped in fives ("2vxsx-fae").
package models
