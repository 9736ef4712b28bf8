package storage

import "errors"

// Sentinel errors returned by Store methods. Callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrDuplicateRequest = errors.New("request already pending")
	ErrSelfTarget       = errors.New("cannot target yourself")
	ErrAlreadyMember    = errors.New("already a team member")
	ErrDuplicateTeam    = errors.New("team name already taken in this hackathon")
	ErrNotTeamLeader    = errors.New("only the team leader can do that")
)
