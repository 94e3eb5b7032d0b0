package inmemdb

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/user"
)

// DB is a thread-safe in-memory database. Every repository built on the same DB shares its tables,
// and a single lock makes multi-table writes atomic.
type DB struct {
	mutex sync.RWMutex

	users        *table[user.User]
	cohorts      *table[cohort.Cohort]
	classes      *table[class.Class]
	enrollments  map[string]map[string]time.Time // {classID: {studentID: enrolledAt}}
	assignments  *table[assignment.Assignment]  // competencies are kept apart
	competencies *table[assignment.Competency]
	submissions  *table[submission.Submission]
	progress     *table[competency.Progress]
}

func Open() *DB {
	db := new(DB)
	db.reset()
	return db
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = newTable[user.User]()
	db.cohorts = newTable[cohort.Cohort]()
	db.classes = newTable[class.Class]()
	db.enrollments = make(map[string]map[string]time.Time)
	db.assignments = newTable[assignment.Assignment]()
	db.competencies = newTable[assignment.Competency]()
	db.submissions = newTable[submission.Submission]()
	db.progress = newTable[competency.Progress]()
}

func (db *DB) Close() error { return nil }

func newID() string {
	return uuid.New().String()
}

// table keeps rows by id and remembers their insertion order.
type table[T any] struct {
	rows map[string]*T
	ids  []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func (t *table[T]) insert(id string, row T) *T {
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = &row
	return t.rows[id]
}

func (t *table[T]) get(id string) (*T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) delete(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, rid := range t.ids {
		if rid == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
}

// all returns the rows matching every filter, in insertion order.
func (t *table[T]) all(filters ...func(*T) bool) []*T {
	rows := make([]*T, 0, len(t.ids))
outer:
	for _, id := range t.ids {
		row := t.rows[id]
		for _, f := range filters {
			if !f(row) {
				continue outer
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// newestFirst sorts rows by descending key. Rows with equal keys are ordered last inserted first.
func newestFirst[T any](rows []*T, key func(*T) time.Time) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i]).After(key(rows[j])) })
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// cascade helpers; callers hold the write lock

func (db *DB) deleteAssignmentCascade(id string) {
	for _, comp := range db.competencies.all(func(c *assignment.Competency) bool { return c.AssignmentID == id }) {
		db.deleteCompetencyCascade(comp.ID)
	}
	for _, sub := range db.submissions.all(func(s *submission.Submission) bool { return s.AssignmentID == id }) {
		db.deleteSubmissionCascade(sub.ID)
	}
	db.assignments.delete(id)
}

func (db *DB) deleteCompetencyCascade(id string) {
	for _, p := range db.progress.all(func(p *competency.Progress) bool { return p.CompetencyID == id }) {
		db.progress.delete(p.ID)
	}
	db.competencies.delete(id)
}

func (db *DB) deleteSubmissionCascade(id string) {
	for _, p := range db.progress.all(func(p *competency.Progress) bool { return p.SubmissionID == id }) {
		p.SubmissionID = ""
	}
	db.submissions.delete(id)
}

// read helpers; callers hold a lock

func (db *DB) activeUser(id string) (*user.User, bool) {
	usr, ok := db.users.get(id)
	if !ok || usr.DeletedAt != nil {
		return nil, false
	}
	return usr, true
}

func (db *DB) isEnrolled(classID, studentID string) bool {
	_, ok := db.enrollments[classID][studentID]
	return ok
}

func (db *DB) assignmentCompetencies(assignmentID string) []assignment.Competency {
	rows := db.competencies.all(func(c *assignment.Competency) bool { return c.AssignmentID == assignmentID })
	comps := make([]assignment.Competency, 0, len(rows))
	for _, c := range rows {
		comps = append(comps, *c)
	}
	return comps
}

// activeAssignments returns the active assignments of the active class, newest first.
func (db *DB) activeAssignments(classID string) []*assignment.Assignment {
	cls, ok := db.classes.get(classID)
	if !ok || cls.DeletedAt != nil {
		return nil
	}
	rows := db.assignments.all(func(a *assignment.Assignment) bool { return a.ClassID == classID && a.DeletedAt == nil })
	newestFirst(rows, func(a *assignment.Assignment) time.Time { return a.CreatedAt })
	return rows
}

// reachableAssignments returns the active assignments of the active classes the student is enrolled in.
func (db *DB) reachableAssignments(studentID string) []*assignment.Assignment {
	var asgs []*assignment.Assignment
	for _, cls := range db.classes.all(func(c *class.Class) bool { return c.DeletedAt == nil }) {
		if db.isEnrolled(cls.ID, studentID) {
			asgs = append(asgs, db.activeAssignments(cls.ID)...)
		}
	}
	return asgs
}

func (db *DB) findSubmission(studentID, assignmentID string) (*submission.Submission, bool) {
	for _, sub := range db.submissions.all() {
		if sub.StudentID == studentID && sub.AssignmentID == assignmentID {
			return sub, true
		}
	}
	return nil, false
}

func (db *DB) findProgress(competencyID, studentID string) (*competency.Progress, bool) {
	for _, p := range db.progress.all() {
		if p.CompetencyID == competencyID && p.StudentID == studentID {
			return p, true
		}
	}
	return nil, false
}
