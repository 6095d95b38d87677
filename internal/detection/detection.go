// Package detection holds detected anomalies and the aggregate that indexes them.
package detection

import (
	"fmt"

	"github.com/sbenjam1n/validb/internal/vars"
)

// DefaultLevel is the level of a rule that does not declare one.
const DefaultLevel = 0

// Detection is one anomaly found by a rule in one result row. It is never
// modified after construction.
type Detection struct {
	id            string
	level         int
	detectionType string
	message       string
	vars          vars.Bag
}

// Constructor builds a Detection from the values a rule computed for a row.
type Constructor func(id string, level int, detectionType, message string, bag vars.Bag) *Detection

// New is the default Constructor.
func New(id string, level int, detectionType, message string, bag vars.Bag) *Detection {
	return &Detection{
		id:            id,
		level:         level,
		detectionType: detectionType,
		message:       message,
		vars:          bag,
	}
}

// ID identifies the record in which the anomaly was detected.
func (d *Detection) ID() string { return d.id }

// Level is the severity; higher is more severe.
func (d *Detection) Level() int { return d.level }

// DetectionType tells which rule kind found the anomaly.
func (d *Detection) DetectionType() string { return d.detectionType }

// Message is the rendered rule message.
func (d *Detection) Message() string { return d.message }

// Vars returns the variables the detection was built from.
func (d *Detection) Vars() vars.Bag { return d.vars }

func (d *Detection) String() string {
	return fmt.Sprintf("<Detection: %s %d %s %q>", d.id, d.level, d.detectionType, d.message)
}
