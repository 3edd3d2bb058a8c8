// Package model defines domain entities for the application.
package model

import "strconv"

// User is a record held by the remote user service.
// ID and CreatedAt are assigned by the service and never set by the console.
type User struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt Timestamp `json:"createdAt"`
}

// HasID reports whether the record carries a service-assigned identifier.
func (u User) HasID() bool {
	return u.ID != ""
}

// Input returns the client-editable fields of the record.
func (u User) Input() UserInput {
	return UserInput{Name: u.Name, Email: u.Email, Age: u.Age}
}

// UserInput is the payload sent when creating a user.
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

// Patch converts the input into an update payload carrying every field.
func (in UserInput) Patch() UserPatch {
	name, email, age := in.Name, in.Email, in.Age
	return UserPatch{Name: &name, Email: &email, Age: &age}
}

// UserPatch is a partial update. Nil fields are left untouched by the service.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Age   *int    `json:"age,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil
}

// ParseAge converts typed age input into an integer.
// It reads an optional sign followed by leading digits and ignores the rest,
// so "42abc" is 42. Input with no leading digits yields 0.
func ParseAge(raw string) int {
	i := 0
	for i < len(raw) && isSpace(raw[i]) {
		i++
	}

	start := i
	if i < len(raw) && (raw[i] == '+' || raw[i] == '-') {
		i++
	}
	digits := i
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i == digits {
		return 0
	}

	n, err := strconv.Atoi(raw[start:i])
	if err != nil {
		// Out of range for int.
		return 0
	}
	return n
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
