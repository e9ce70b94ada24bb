// Package events carries structured notices from the sync core to whatever
// presents them (CLI, event stream, logs).
package events

import "strings"

// EntityType names a synced entity
type EntityType string

// Kind names what happened
type Kind string

// Canonical entity types
const (
	EntitySubjects        EntityType = "subjects"
	EntityTeachers        EntityType = "teachers"
	EntitySubjectTeachers EntityType = "subject_teachers"
	EntityGrades          EntityType = "grades"
	EntityStudyDays       EntityType = "study_days"
	EntityLessons         EntityType = "lessons"
	EntityTasks           EntityType = "tasks"
	EntityTermMarks       EntityType = "term_marks"
	EntityAppVersion      EntityType = "app_version"
)

// Canonical kinds
const (
	// KindItemSkipped: one record could not be applied (usually an
	// unresolved reference); the rest of the batch continued.
	KindItemSkipped Kind = "item_skipped"
	KindItemNew     Kind = "item_new"
	KindDayChanged  Kind = "day_changed"
	KindJobStarted  Kind = "job_started"
	KindJobFinished Kind = "job_finished"
	KindVersion     Kind = "version_state"
)

// AllEntityTypes returns all valid entity types.
func AllEntityTypes() map[EntityType]bool {
	return map[EntityType]bool{
		EntitySubjects:        true,
		EntityTeachers:        true,
		EntitySubjectTeachers: true,
		EntityGrades:          true,
		EntityStudyDays:       true,
		EntityLessons:         true,
		EntityTasks:           true,
		EntityTermMarks:       true,
		EntityAppVersion:      true,
	}
}

// AllKinds returns all valid kinds.
func AllKinds() map[Kind]bool {
	return map[Kind]bool{
		KindItemSkipped: true,
		KindItemNew:     true,
		KindDayChanged:  true,
		KindJobStarted:  true,
		KindJobFinished: true,
		KindVersion:     true,
	}
}

// IsValidEntityType checks if the given entity type string is valid.
func IsValidEntityType(et string) bool {
	return AllEntityTypes()[EntityType(et)]
}

// IsValidKind checks if the given kind string is valid.
func IsValidKind(k string) bool {
	return AllKinds()[Kind(k)]
}

// NormalizeEntityType maps singular and mixed-case spellings ("Grade",
// "task") to the canonical plural form.
func NormalizeEntityType(et string) (EntityType, bool) {
	s := strings.ToLower(strings.TrimSpace(et))
	if IsValidEntityType(s) {
		return EntityType(s), true
	}
	if IsValidEntityType(s + "s") {
		return EntityType(s + "s"), true
	}
	return "", false
}
