// Package role holds the fixed account roles. The integer values are part of
// the token and database contract and must not be renumbered.
package role

import (
	"encoding/json"
	"fmt"
)

type Role int

const (
	Admin Role = 1
	User  Role = 2
)

func (r Role) Valid() bool {
	return r == Admin || r == User
}

func (r Role) ID() int {
	return int(r)
}

func (r Role) String() string {
	switch r {
	case Admin:
		return "Admin"
	case User:
		return "User"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// FromID converts a stored role id into a Role.
func FromID(id int) (Role, error) {
	r := Role(id)
	if !r.Valid() {
		return 0, fmt.Errorf("unknown role id %d", id)
	}
	return r, nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(r))
}

// UnmarshalJSON accepts only the numeric ids of known roles.
func (r *Role) UnmarshalJSON(b []byte) error {
	var id int
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}

	parsed, err := FromID(id)
	if err != nil {
		return err
	}

	*r = parsed
	return nil
}
