package domain

import "strings"

// EntityKind names a kind of rated entity.
type EntityKind string

const (
	KindEstablishment EntityKind = "establishment"
	KindPOSSystem     EntityKind = "pos_system"
)

// Target identifies exactly one rated entity.
type Target struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// NewTarget builds a Target from the two optional request ids. Exactly one
// must be non-empty.
func NewTarget(establishmentID, posSystemID string) (Target, error) {
	establishmentID = strings.TrimSpace(establishmentID)
	posSystemID = strings.TrimSpace(posSystemID)

	switch {
	case establishmentID != "" && posSystemID == "":
		return Target{Kind: KindEstablishment, ID: establishmentID}, nil
	case posSystemID != "" && establishmentID == "":
		return Target{Kind: KindPOSSystem, ID: posSystemID}, nil
	default:
		return Target{}, InvalidTarget()
	}
}

// TargetFor builds a Target from a path-style kind ("establishment",
// "pos-system" or "pos_system") and id.
func TargetFor(kind, id string) (Target, error) {
	k, ok := ParseEntityKind(kind)
	if !ok || strings.TrimSpace(id) == "" {
		return Target{}, InvalidTarget()
	}
	return Target{Kind: k, ID: strings.TrimSpace(id)}, nil
}

// ParseEntityKind accepts the kind spellings used in URLs.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch strings.ToLower(s) {
	case "establishment":
		return KindEstablishment, true
	case "pos-system", "pos_system":
		return KindPOSSystem, true
	default:
		return "", false
	}
}

// Columns returns the values for the establishment_id and pos_system_id
// columns; the one not addressed is nil.
func (t Target) Columns() (establishmentID, posSystemID *string) {
	id := t.ID
	if t.Kind == KindEstablishment {
		return &id, nil
	}
	return nil, &id
}

// TargetFromColumns is the inverse of Columns.
func TargetFromColumns(establishmentID, posSystemID *string) (Target, error) {
	var est, pos string
	if establishmentID != nil {
		est = *establishmentID
	}
	if posSystemID != nil {
		pos = *posSystemID
	}
	return NewTarget(est, pos)
}

func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}
