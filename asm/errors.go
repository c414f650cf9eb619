package asm

import "errors"

var (
	ErrRoutineOpen       = errors.New("routine not terminated")
	ErrRoutineMismatch   = errors.New("routine end does not match its beginning")
	ErrNoRoutine         = errors.New("no routine to end")
	ErrRoutineDefined    = errors.New("routine already defined")
	ErrSectionIntroduced = errors.New("section already introduced")
	ErrSectionType       = errors.New("unknown section type")
	ErrSymbol            = errors.New("invalid symbol name")
	ErrSection           = errors.New("invalid section name")
)
