// Package authz is the single decision point for every permission check in
// the application: a pure function over the acting principal, the requested
// action and the facts about the target resource. Services never compare
// roles inline; they build a Target and ask Decide.
package authz

import (
	"github.com/trezcool/darasa/core/user"
)

type Action string

const (
	// courses
	ActionViewCourse         Action = "course.view"
	ActionCreateCourse       Action = "course.create"
	ActionUpdateCourse       Action = "course.update"
	ActionDeleteCourse       Action = "course.delete"
	ActionReassignInstructor Action = "course.reassign_instructor"

	// lessons & assignments (course content)
	ActionManageContent Action = "content.manage"
	ActionViewContent   Action = "content.view"

	// enrollments
	ActionEnroll        Action = "enrollment.create"
	ActionUnenroll      Action = "enrollment.delete"
	ActionAdminEnroll   Action = "enrollment.admin_create"
	ActionAdminUnenroll Action = "enrollment.admin_delete"

	// submissions
	ActionSubmit Action = "submission.create"
	ActionGrade  Action = "submission.grade"
)

// Reason describes why a Decision denies; callers render distinct messages
// per reason instead of a blanket "forbidden".
type Reason string

const (
	NotAuthenticated Reason = "not_authenticated"
	WrongRole        Reason = "wrong_role"
	NotOwner         Reason = "not_owner"
	NotEnrolled      Reason = "not_enrolled"
	NotPublished     Reason = "not_published"
	AlreadyExists    Reason = "already_exists"
	OutOfRange       Reason = "out_of_range"
	NotFound         Reason = "not_found"
)

var reasonTexts = map[Reason]string{
	NotAuthenticated: "authentication required",
	WrongRole:        "permission denied",
	NotOwner:         "permission denied",
	NotEnrolled:      "enrollment in this course is required",
	NotPublished:     "this course is not published",
	AlreadyExists:    "already exists",
	OutOfRange:       "value out of range",
	NotFound:         "not found",
}

// Principal is the authenticated actor making a request. The zero value is
// the anonymous principal.
type Principal struct {
	ID   int
	Role user.Role
}

func PrincipalFor(usr user.User) Principal {
	return Principal{ID: usr.ID, Role: usr.Role}
}

func (p Principal) Anonymous() bool    { return p.ID == 0 }
func (p Principal) IsStudent() bool    { return p.Role == user.RoleStudent }
func (p Principal) IsInstructor() bool { return p.Role == user.RoleInstructor }
func (p Principal) IsAdmin() bool      { return p.Role == user.RoleAdmin }

// Target carries the facts about the resource a decision is made against.
// Callers fill in only the fields the action consults.
type Target struct {
	// CourseInstructorID is the owning instructor of the course (or of the
	// course a lesson/assignment/submission belongs to).
	CourseInstructorID int
	// CoursePublished reports whether the course is visible to non-owners.
	CoursePublished bool
	// Enrolled reports whether the principal holds an enrollment in the course.
	Enrolled bool
	// Duplicate reports whether the row the action would create already
	// exists (enrollment or submission uniqueness).
	Duplicate bool
	// OwnerID is the acting-student-owned row's student id (enrollment,
	// submission, progress).
	OwnerID int
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Err converts a Decision to an error value: nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &Error{Reason: d.Reason}
}

// Error is a denied Decision as an error value.
type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	if msg, ok := reasonTexts[e.Reason]; ok {
		return msg
	}
	return "permission denied"
}

func NewError(r Reason) error { return &Error{Reason: r} }

// Decide maps (principal, action, target) to an allow/deny decision.
// Rules are evaluated in precedence order; first match wins.
func Decide(p Principal, act Action, t Target) Decision {
	if p.Anonymous() {
		return deny(NotAuthenticated)
	}

	switch act {
	case ActionViewCourse:
		if t.CoursePublished || p.ID == t.CourseInstructorID || p.IsAdmin() {
			return allow()
		}
		return deny(NotPublished)

	case ActionCreateCourse:
		if p.IsInstructor() || p.IsAdmin() {
			return allow()
		}
		return deny(WrongRole)

	case ActionUpdateCourse, ActionDeleteCourse:
		if p.IsAdmin() {
			return allow()
		}
		if p.IsInstructor() {
			if p.ID == t.CourseInstructorID {
				return allow()
			}
			return deny(NotOwner)
		}
		return deny(WrongRole)

	case ActionReassignInstructor:
		if p.IsAdmin() {
			return allow()
		}
		return deny(WrongRole)

	case ActionManageContent:
		// instructor-owner only; admins are deliberately excluded.
		if p.IsInstructor() {
			if p.ID == t.CourseInstructorID {
				return allow()
			}
			return deny(NotOwner)
		}
		return deny(WrongRole)

	case ActionViewContent:
		if p.IsAdmin() {
			return allow()
		}
		if p.IsInstructor() {
			if p.ID == t.CourseInstructorID {
				return allow()
			}
			return deny(NotOwner)
		}
		if p.IsStudent() {
			if t.Enrolled {
				return allow()
			}
			return deny(NotEnrolled)
		}
		return deny(WrongRole)

	case ActionEnroll:
		if !p.IsStudent() {
			return deny(WrongRole)
		}
		if t.Duplicate {
			return deny(AlreadyExists)
		}
		return allow()

	case ActionUnenroll:
		if !p.IsStudent() {
			return deny(WrongRole)
		}
		if p.ID != t.OwnerID {
			return deny(NotOwner)
		}
		return allow()

	case ActionAdminEnroll, ActionAdminUnenroll:
		if p.IsAdmin() {
			return allow()
		}
		return deny(WrongRole)

	case ActionSubmit:
		if !p.IsStudent() {
			return deny(WrongRole)
		}
		if !t.Enrolled {
			return deny(NotEnrolled)
		}
		if t.Duplicate {
			return deny(AlreadyExists)
		}
		return allow()

	case ActionGrade:
		if p.IsInstructor() {
			if p.ID == t.CourseInstructorID {
				return allow()
			}
			return deny(NotOwner)
		}
		return deny(WrongRole)
	}

	return deny(WrongRole)
}
