package types

// LocationKind says where a dependency's files are found.
type LocationKind string

const (
	LocationRemote  LocationKind = "remote"
	LocationLocal   LocationKind = "local"
	LocationProject LocationKind = "project"
)

// ValidLocation reports whether the given value names a known location kind.
func ValidLocation(value LocationKind) bool {
	switch value {
	case LocationRemote, LocationLocal, LocationProject:
		return true
	default:
		return false
	}
}

// SignaturePolicy controls what happens when a downloaded file's digest
// does not match its companion signature.
type SignaturePolicy string

const (
	SignatureIgnore SignaturePolicy = "ignore"
	SignatureWarn   SignaturePolicy = "warn"
	SignatureError  SignaturePolicy = "error"
)

// ConflictAction selects how a version conflict for a dependency ID is
// settled when an override is configured.
type ConflictAction string

const (
	ConflictActionError ConflictAction = "error"
	ConflictActionNewer ConflictAction = "newer"
	ConflictActionOlder ConflictAction = "older"
)

// VerifyStatus records the signature verification outcome for a cached
// artifact.
type VerifyStatus string

const (
	VerifyVerified   VerifyStatus = "verified"
	VerifyUnverified VerifyStatus = "unverified"
	VerifyFailed     VerifyStatus = "failed"
)
