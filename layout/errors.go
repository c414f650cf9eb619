package layout

import "errors"

var (
	ErrArchNotRegistered = errors.New("arch is not registered")
	ErrUnboundRole       = errors.New("role has no section name")
	ErrUnknownRole       = errors.New("unknown role")
	ErrDuplicateName     = errors.New("section name bound to more than one role")
	ErrSectionName       = errors.New("invalid section name")
	ErrAlignment         = errors.New("alignment is not a power of two")
	ErrOrdering          = errors.New("region ordering violated")
	ErrOverlap           = errors.New("region overlaps preceding region")
	ErrOverflow          = errors.New("region exceeds address space")
	ErrResetVector       = errors.New("start text is not at the reset vector")
	ErrSize              = errors.New("invalid region size")
	ErrImageRange        = errors.New("image data outside loaded regions")
)
