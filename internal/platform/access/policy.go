package access

import "github.com/mediconnect/mediconnect/internal/platform/auth"

type Resource string

const (
	Users               Resource = "user"
	Specialties         Resource = "specialty"
	Doctors             Resource = "doctor"
	Patients            Resource = "patient"
	AppointmentStatuses Resource = "appointment status"
	Appointments        Resource = "appointment"
	MedicalRecords      Resource = "medical record"
	ClinicalHistory     Resource = "clinical history"
	VideoRooms          Resource = "video room"
)

type Action string

const (
	List   Action = "list"
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
	Join   Action = "join"
)

// Scope is how far a role reaches for one resource and action.
type Scope int

const (
	// Deny refuses the role outright.
	Deny Scope = iota
	// Any allows every row.
	Any
	// Own allows rows whose ownership matches the caller's linked profile.
	Own
	// Self allows the action with the caller's linked profile imposed on
	// the request, e.g. as a list filter or the owner of a new row.
	Self
)

func (s Scope) String() string {
	switch s {
	case Any:
		return "any"
	case Own:
		return "own"
	case Self:
		return "self"
	default:
		return "deny"
	}
}

// Rule holds the scope of each role.
type Rule struct {
	Admin   Scope
	Doctor  Scope
	Patient Scope
}

// For returns the scope of role. Unknown roles are denied.
func (r Rule) For(role auth.Role) Scope {
	switch role {
	case auth.RoleAdmin:
		return r.Admin
	case auth.RoleDoctor:
		return r.Doctor
	case auth.RolePatient:
		return r.Patient
	default:
		return Deny
	}
}

type key struct {
	res Resource
	act Action
}

// Policy maps resource actions to rules. Pairs without a rule are denied to
// every role.
type Policy map[key]Rule

func (p Policy) Set(res Resource, act Action, r Rule) {
	p[key{res, act}] = r
}

func (p Policy) Rule(res Resource, act Action) (Rule, bool) {
	r, ok := p[key{res, act}]
	return r, ok
}

func adminOnly() Rule { return Rule{Admin: Any} }

// DefaultPolicy is the MediConnect authorization table.
func DefaultPolicy() Policy {
	p := Policy{}

	p.Set(Users, List, Rule{Admin: Any, Doctor: Any, Patient: Any})
	p.Set(Users, Read, Rule{Admin: Any, Doctor: Any, Patient: Any})
	p.Set(Users, Create, adminOnly())

	for _, act := range []Action{List, Read, Create, Update, Delete} {
		p.Set(Specialties, act, adminOnly())
		p.Set(AppointmentStatuses, act, adminOnly())
	}

	p.Set(Doctors, List, adminOnly())
	p.Set(Doctors, Read, Rule{Admin: Any, Doctor: Own})
	p.Set(Doctors, Create, adminOnly())
	p.Set(Doctors, Update, Rule{Admin: Any, Doctor: Own})
	p.Set(Doctors, Delete, adminOnly())

	p.Set(Patients, List, adminOnly())
	p.Set(Patients, Read, Rule{Admin: Any, Patient: Own})
	p.Set(Patients, Create, adminOnly())

	p.Set(Appointments, List, Rule{Admin: Any, Doctor: Self, Patient: Self})
	p.Set(Appointments, Read, Rule{Admin: Any, Doctor: Own, Patient: Own})
	p.Set(Appointments, Create, Rule{Admin: Any, Patient: Self})
	p.Set(Appointments, Update, Rule{Admin: Any, Doctor: Own})
	p.Set(Appointments, Delete, adminOnly())

	p.Set(MedicalRecords, Read, Rule{Admin: Any, Doctor: Any})
	p.Set(MedicalRecords, Create, adminOnly())
	p.Set(MedicalRecords, Update, Rule{Admin: Any, Doctor: Any})

	p.Set(ClinicalHistory, Read, Rule{Admin: Any, Doctor: Any, Patient: Own})
	p.Set(ClinicalHistory, Create, Rule{Admin: Any, Doctor: Any})
	p.Set(ClinicalHistory, Update, Rule{Admin: Any, Doctor: Any})
	p.Set(ClinicalHistory, Delete, adminOnly())

	p.Set(VideoRooms, Join, Rule{Admin: Any, Doctor: Own, Patient: Own})

	return p
}
