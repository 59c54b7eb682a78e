// Package homework contains the review queue domain: the homework entity,
// the verdict table, payload validation and status translation.
package homework

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
)

const domainName = "homework"

// Status is a review status code reported by the status endpoint.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// verdicts is the verdict table. It is never modified after package init.
var verdicts = map[Status]string{
	StatusApproved:  "The work has been reviewed: the reviewer liked everything. Hooray!",
	StatusReviewing: "The work has been taken for review by the reviewer.",
	StatusRejected:  "The work has been reviewed: the reviewer has comments.",
}

// Verdict returns the human-readable text for the status.
func (s Status) Verdict() (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// String returns the raw status code.
func (s Status) String() string {
	return string(s)
}

// KnownStatuses returns the verdict table keys in a stable order.
func KnownStatuses() []Status {
	out := make([]Status, 0, len(verdicts))
	for s := range verdicts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func knownList() string {
	known := KnownStatuses()
	names := make([]string, len(known))
	for i, s := range known {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Homework is a single entry of the endpoint's homeworks list.
// HasName and HasStatus record whether the keys were present at all;
// a present key may still hold an empty string.
type Homework struct {
	Name      string
	Status    Status
	HasName   bool
	HasStatus bool
}

// New returns a homework with both fields present.
func New(name string, status Status) Homework {
	return Homework{Name: name, Status: status, HasName: true, HasStatus: true}
}

// Translate turns a homework into the notification text.
// It fails with a schema error when a field is missing or the status is unknown,
// so no status outside the verdict table ever reaches the notifier.
func Translate(hw Homework) (string, error) {
	if !hw.HasName {
		return "", shared.SchemaError(domainName, "Translate", "homework has no %q key", keyName)
	}
	if !hw.HasStatus {
		return "", shared.SchemaError(domainName, "Translate", "homework %q has no %q key", hw.Name, keyStatus)
	}

	verdict, ok := hw.Status.Verdict()
	if !ok {
		return "", shared.SchemaError(domainName, "Translate", "homework %q has unknown status %q, want one of %s",
			hw.Name, hw.Status, knownList())
	}

	return fmt.Sprintf(`Changed review status of "%s". %s`, hw.Name, verdict), nil
}
