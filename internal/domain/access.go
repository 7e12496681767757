package domain

// AccessLevel is the outcome of policy evaluation for an (actor, entity)
// pair. Owner is the most privileged and is always reported when it holds,
// even if Public or Shared would also match.
type AccessLevel int

const (
	AccessDenied AccessLevel = iota
	AccessShared
	AccessPublic
	AccessOwner
)

func (l AccessLevel) String() string {
	switch l {
	case AccessOwner:
		return "owner"
	case AccessPublic:
		return "public"
	case AccessShared:
		return "shared"
	default:
		return "denied"
	}
}

// CanView reports whether the level permits reading the entity.
func (l AccessLevel) CanView() bool {
	return l != AccessDenied
}

// CanMutate reports whether the level permits update/delete/share/unshare.
// Only ownership qualifies; Public and Shared are read-only.
func (l AccessLevel) CanMutate() bool {
	return l == AccessOwner
}
