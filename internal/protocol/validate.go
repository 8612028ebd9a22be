package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Limits enforced at the boundary before anything reaches the room store.
const (
	MaxNameLength     = 64
	MaxRoomIDLength   = 128
	MaxStatusLength   = 200
	MaxTaskTextLength = 500
	MaxTasks          = 200
)

var (
	ErrMissingPayload = errors.New("missing payload")
	ErrMalformed      = errors.New("malformed payload")
	ErrEmptyName      = errors.New("user name is required")
	ErrEmptyRoom      = errors.New("room id is required")
	ErrTooLong        = errors.New("value too long")
	ErrMissingTimer   = errors.New("timer state is required")
	ErrNegativeTime   = errors.New("time values must not be negative")
	ErrTooManyTasks   = errors.New("too many tasks")
	ErrMissingTarget  = errors.New("target id is required")
)

// Normalize trims both fields and checks them against the limits.
func (j *JoinRoom) Normalize() error {
	j.RoomID = strings.TrimSpace(j.RoomID)
	j.UserName = strings.TrimSpace(j.UserName)

	switch {
	case j.RoomID == "":
		return ErrEmptyRoom
	case j.UserName == "":
		return ErrEmptyName
	case utf8.RuneCountInString(j.RoomID) > MaxRoomIDLength:
		return fmt.Errorf("roomId: %w", ErrTooLong)
	case utf8.RuneCountInString(j.UserName) > MaxNameLength:
		return fmt.Errorf("userName: %w", ErrTooLong)
	}
	return nil
}

// Validate checks the timer snapshot carried by the update.
func (u *TimerUpdate) Validate() error {
	if u.TimerState == nil {
		return ErrMissingTimer
	}
	if u.TimerState.TimeLeft < 0 || u.TimerState.TotalTime < 0 {
		return ErrNegativeTime
	}
	if utf8.RuneCountInString(u.TimerState.Status) > MaxStatusLength {
		return fmt.Errorf("status: %w", ErrTooLong)
	}
	return nil
}

// Validate checks the task list size and every task's text. A missing list is
// treated as empty.
func (u *TaskUpdate) Validate() error {
	if u.Tasks == nil {
		u.Tasks = []Task{}
	}
	if len(u.Tasks) > MaxTasks {
		return ErrTooManyTasks
	}
	for i, t := range u.Tasks {
		if utf8.RuneCountInString(t.Text) > MaxTaskTextLength {
			return fmt.Errorf("tasks[%d].text: %w", i, ErrTooLong)
		}
	}
	return nil
}
