package identity

import (
	"context"
	"testing"
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func newTestAuthService(t *testing.T, authn auth.Authenticator) (*AuthService, *mockStore, *fakeTx) {
	t.Helper()
	store := newMockStore()
	tx := &fakeTx{}
	svc := NewAuthService(mockUserRepo{store}, mockSpecialtyRepo{store}, mockDoctorRepo{store},
		mockPatientRepo{store}, tx, access.NewGuard(nil), auth.NewPasswordHasher(4), authn)
	return svc, store, tx
}

func newTestTokenAuthenticator(t *testing.T) (*auth.TokenAuthenticator, *auth.TokenIssuer) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SigningKey: []byte(testSigningKey),
		Issuer:     "mediconnect",
		Audience:   "mediconnect-api",
		TTL:        time.Hour,
	})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return auth.NewTokenAuthenticator(issuer, auth.NewMemoryRevocationStore()), issuer
}

func TestAuthService_Login_TokenMode(t *testing.T) {
	authn, issuer := newTestTokenAuthenticator(t)
	svc, store, _ := newTestAuthService(t, authn)
	u := store.seedUser("Ana", "Lopez", "ana@example.com", "correct-horse", auth.RolePatient)
	p := store.seedPatient(u)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ANA@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != auth.ModeToken || resp.Token == "" || resp.ExpiresAt == nil {
		t.Fatalf("unexpected grant %+v", resp.Grant)
	}
	if resp.User.PatientID == nil || *resp.User.PatientID != p.ID {
		t.Errorf("expected patientId %d in summary, got %+v", p.ID, resp.User)
	}
	if resp.User.DoctorID != nil {
		t.Error("patient summary must not carry a doctorId")
	}

	claims, err := issuer.Verify(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id, _ := claims.UserID(); id != u.ID || claims.Role != "Patient" {
		t.Errorf("unexpected claims sub=%s role=%s", claims.Subject, claims.Role)
	}
}

func TestAuthService_Login_HeaderMode(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())
	u := store.seedUser("Ben", "Ruiz", "ben@example.com", "correct-horse", auth.RoleDoctor)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ben@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != auth.ModeHeader || resp.Token != "" {
		t.Fatalf("unexpected grant %+v", resp.Grant)
	}
	if resp.Headers[auth.HeaderUserRole] != "Doctor" {
		t.Errorf("expected Doctor role header, got %v", resp.Headers)
	}
	if resp.Headers[auth.HeaderUserID] == "" || resp.User.ID != u.ID {
		t.Errorf("expected user id header, got %v", resp.Headers)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())
	store.seedUser("Ana", "Lopez", "ana@example.com", "correct-horse", auth.RolePatient)

	_, wrongPassword := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "nope"})
	_, unknownEmail := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "nope"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		e, ok := apperr.As(err)
		if !ok || e.Kind != apperr.KindUnauthenticated {
			t.Fatalf("expected unauthenticated, got %v", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("login failures differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestAuthService_Register_CreatesPatientProfile(t *testing.T) {
	svc, store, tx := newTestAuthService(t, auth.NewHeaderAuthenticator())
	gender := "F"

	sum, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com",
		Password: "correct-horse", Gender: &gender,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Role != auth.RolePatient || sum.PatientID == nil {
		t.Fatalf("expected patient with profile, got %+v", sum)
	}
	if tx.calls != 1 {
		t.Errorf("expected one transaction, got %d", tx.calls)
	}
	u := store.users[sum.ID]
	if u.PasswordHash == "correct-horse" || !auth.VerifyPassword("correct-horse", u.PasswordHash) {
		t.Error("expected stored bcrypt hash")
	}
	if p := store.patients[*sum.PatientID]; p.UserID != sum.ID || *p.Gender != "F" {
		t.Errorf("unexpected patient row %+v", p)
	}
}

func TestAuthService_Register_RejectsPrivilegedRoles(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())
	adminID := int64(1)

	for _, req := range []RegisterRequest{
		{FirstName: "Eve", LastName: "X", Email: "eve@example.com", Password: "correct-horse", Role: "admin"},
		{FirstName: "Eve", LastName: "X", Email: "eve@example.com", Password: "correct-horse", Role: "Doctor"},
		{FirstName: "Eve", LastName: "X", Email: "eve@example.com", Password: "correct-horse", RoleID: &adminID},
	} {
		_, err := svc.Register(context.Background(), req)
		assertCode(t, err, apperr.KindForbidden, string(access.ReasonWrongRole))
	}
	if len(store.users) != 0 {
		t.Errorf("expected no users, got %d", len(store.users))
	}

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Eve", LastName: "X", Email: "eve@example.com", Password: "correct-horse", Role: "nurse",
	})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request for unknown role, got %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())
	store.seedUser("Ana", "Lopez", "ana@example.com", "correct-horse", auth.RolePatient)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Ana", LastName: "L", Email: "Ana@Example.com", Password: "correct-horse",
	})
	assertCode(t, err, apperr.KindConflict, apperr.CodeDuplicate)
}

func TestAuthService_RegisterByAdmin(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())
	sp := store.seedSpecialty("Cardiology")

	sum, err := svc.RegisterByAdmin(context.Background(), adminPrincipal, RegisterRequest{
		FirstName: "Ben", LastName: "Ruiz", Email: "ben@example.com", Password: "correct-horse",
		Role: "Doctor", LicenseNumber: "MX-1", SpecialtyID: sp.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Role != auth.RoleDoctor || sum.DoctorID == nil {
		t.Fatalf("expected doctor with profile, got %+v", sum)
	}

	adminRole := int64(1)
	sum, err = svc.RegisterByAdmin(context.Background(), adminPrincipal, RegisterRequest{
		FirstName: "Root", LastName: "Admin", Email: "root@example.com", Password: "correct-horse", RoleID: &adminRole,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Role != auth.RoleAdmin || sum.DoctorID != nil || sum.PatientID != nil {
		t.Errorf("unexpected admin summary %+v", sum)
	}
}

func TestAuthService_RegisterByAdmin_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())

	_, err := svc.RegisterByAdmin(context.Background(), auth.Principal{UserID: 3, Role: auth.RoleDoctor, ProfileID: 1},
		RegisterRequest{FirstName: "A", LastName: "B", Email: "a@example.com", Password: "correct-horse"})
	assertCode(t, err, apperr.KindForbidden, string(access.ReasonWrongRole))

	_, err = svc.RegisterByAdmin(context.Background(), adminPrincipal, RegisterRequest{
		FirstName: "A", LastName: "B", Email: "a@example.com", Password: "correct-horse",
		Role: "Doctor", LicenseNumber: "only-license",
	})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request for partial doctor profile, got %v", err)
	}

	_, err = svc.RegisterByAdmin(context.Background(), adminPrincipal, RegisterRequest{
		FirstName: "A", LastName: "B", Email: "a@example.com", Password: "correct-horse",
		Role: "Doctor", LicenseNumber: "L", SpecialtyID: 999,
	})
	assertCode(t, err, apperr.KindBadRequest, apperr.CodeReferenceNotFound)
}

func TestAuthService_Me(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())
	u := store.seedUser("Ana", "Lopez", "ana@example.com", "correct-horse", auth.RolePatient)
	p := store.seedPatient(u)

	sum, err := svc.Me(context.Background(), auth.Principal{UserID: u.ID, Role: auth.RolePatient, ProfileID: p.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Email != "ana@example.com" || sum.PatientID == nil || *sum.PatientID != p.ID {
		t.Errorf("unexpected summary %+v", sum)
	}

	_, err = svc.Me(context.Background(), auth.Principal{UserID: 404, Role: auth.RoleAdmin})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found for unknown header-mode user, got %v", err)
	}
}

func TestAuthService_SeedAdmin(t *testing.T) {
	svc, store, _ := newTestAuthService(t, auth.NewHeaderAuthenticator())

	sum, err := svc.SeedAdmin(context.Background(), RegisterRequest{
		FirstName: "Root", LastName: "Admin", Email: "root@example.com", Password: "correct-horse", Role: "Patient",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Role != auth.RoleAdmin || len(store.patients) != 0 {
		t.Errorf("expected plain admin, got %+v", sum)
	}

	_, err = svc.SeedAdmin(context.Background(), RegisterRequest{
		FirstName: "Root", LastName: "Admin", Email: "ROOT@example.com", Password: "correct-horse",
	})
	assertCode(t, err, apperr.KindConflict, apperr.CodeDuplicate)
}
