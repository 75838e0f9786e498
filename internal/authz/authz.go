package authz

import "strings"

// Role is the closed set of actor roles.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleInstructor:
		return RoleInstructor, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

type Action string

const (
	ActionCourseCheckout    Action = "course.checkout"
	ActionCourseEnroll      Action = "course.enroll"
	ActionLessonComplete    Action = "lesson.complete"
	ActionCertificateIssue  Action = "certificate.issue"
	ActionEnrollmentList    Action = "enrollment.list"
	ActionPaymentRefund     Action = "payment.refund"
	ActionCouponAdminister  Action = "coupon.administer"
)

// Actor is the authenticated principal attached by the auth middleware.
type Actor struct {
	UserID int64
	Role   Role
}

// Decision is an explicit allow/deny with the denying reason.
type Decision struct {
	Allowed bool
	Reason  string
}

var grants = map[Action][]Role{
	ActionCourseCheckout:   {RoleStudent},
	ActionCourseEnroll:     {RoleStudent},
	ActionLessonComplete:   {RoleStudent},
	ActionCertificateIssue: {RoleStudent},
	ActionEnrollmentList:   {RoleStudent},
	ActionPaymentRefund:    {RoleAdmin},
	ActionCouponAdminister: {RoleAdmin, RoleInstructor},
}

// Can evaluates whether the actor may perform the action. Every protected
// operation calls this instead of inspecting role strings inline.
func Can(actor Actor, action Action) Decision {
	roles, ok := grants[action]
	if !ok {
		return Decision{Allowed: false, Reason: "unknown action"}
	}
	for _, role := range roles {
		if actor.Role == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{Allowed: false, Reason: "role " + string(actor.Role) + " may not " + string(action)}
}
