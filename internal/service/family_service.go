package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/credentials"
	"tribeboard/internal/database"
	"tribeboard/internal/models"
	"tribeboard/internal/repository"
	"tribeboard/internal/validation"
)

var (
	ErrFamilyNotFound       = errors.New("family not found")
	ErrNotFamilyMember      = errors.New("user is not a member of this family")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrPermissionDenied     = errors.New("only the parent admin can manage members")
	ErrParentAdminExists    = models.ErrParentAdminExists
	ErrParentAdminRequired  = errors.New("family needs a parent admin; give the role to another member to hand it over")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationExpired    = errors.New("invitation expired")
	ErrInvitationUsed       = errors.New("invitation already used")
	ErrInvitationNotAllowed = errors.New("the parent admin role cannot be given by invitation")

	// ErrAlreadyMember is wrapped in an AlreadyMember FamilyCreationError
	ErrAlreadyMember = errors.New("user is already an active member of this family")
)

const (
	// maxCodeAttempts bounds retries when a generated family code is already taken
	maxCodeAttempts = 10

	invitationTTL = 7 * 24 * time.Hour
)

// FamilyMember pairs a membership with the member's profile
type FamilyMember struct {
	Membership *models.Membership
	Profile    *models.UserProfile
}

// FamilyService handles family and membership business logic
type FamilyService struct {
	db      *database.DB
	invites InvitationSender
	logger  *zap.Logger

	// generateCode is replaced in tests to force collisions
	generateCode func() (string, error)
}

// NewFamilyService creates a new family service. invites may be nil.
func NewFamilyService(db *database.DB, invites InvitationSender, logger *zap.Logger) *FamilyService {
	return &FamilyService{
		db:      db,
		invites: invites,
		logger:  logger.Named("family"),
		generateCode: func() (string, error) {
			return credentials.GenerateFamilyCode(credentials.DefaultFamilyCodeLength)
		},
	}
}

// CreateFamily creates a family with a fresh join code and makes the creator its parent admin
func (s *FamilyService) CreateFamily(ctx context.Context, name, creatorID string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateFamilyName(name); err != nil {
		return nil, apperr.NewFamilyCreationError(apperr.ValidationFailed, err)
	}

	var family *models.Family
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		creator, err := repository.NewProfileRepository(tx).GetByID(ctx, creatorID)
		if err != nil {
			return apperr.NewFamilyCreationError(apperr.PersistenceFailed, err)
		}
		if creator == nil {
			return ErrProfileNotFound
		}

		families := repository.NewFamilyRepository(tx)
		code, err := s.uniqueCode(ctx, families)
		if err != nil {
			return err
		}

		family = models.NewFamily(uuid.NewString(), name, code, creatorID)
		if err := families.Create(ctx, family); err != nil {
			return apperr.NewFamilyCreationError(apperr.PersistenceFailed, err)
		}

		admin := models.NewMembership(uuid.NewString(), family.ID, creatorID, models.RoleParentAdmin)
		if err := family.AddMembership(admin); err != nil {
			return err
		}
		if err := repository.NewMembershipRepository(tx).Create(ctx, admin); err != nil {
			return apperr.NewFamilyCreationError(apperr.PersistenceFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("family created", zap.String("family_id", family.ID), zap.String("code", family.Code))
	return family, nil
}

func (s *FamilyService) uniqueCode(ctx context.Context, families *repository.FamilyRepository) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return "", apperr.NewFamilyCreationError(apperr.CodeGenerationFailed, err)
		}
		if err := validation.ValidateFamilyCode(code); err != nil {
			return "", apperr.NewFamilyCreationError(apperr.CodeGenerationFailed, err)
		}

		taken, err := families.CodeExists(ctx, code)
		if err != nil {
			return "", apperr.NewFamilyCreationError(apperr.PersistenceFailed, err)
		}
		if !taken {
			return code, nil
		}
		s.logger.Debug("family code collision", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	return "", apperr.NewFamilyCreationError(apperr.CodeCollision,
		fmt.Errorf("no unused code after %d attempts", maxCodeAttempts))
}

// JoinFamilyByCode adds the user to the family with the code. An empty role
// joins as an adult.
func (s *FamilyService) JoinFamilyByCode(ctx context.Context, userID, code string, role models.Role) (*models.Family, *models.Membership, error) {
	code = validation.NormalizeFamilyCode(code)
	if err := validation.ValidateFamilyCode(code); err != nil {
		return nil, nil, err
	}
	if role == "" {
		role = models.RoleAdult
	}
	if !role.IsValid() {
		return nil, nil, validation.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}

	var (
		family     *models.Family
		membership *models.Membership
	)
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		family, err = repository.NewFamilyRepository(tx).GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if family == nil {
			return ErrFamilyNotFound
		}

		membership, err = s.addMember(ctx, tx, family, userID, role, models.StatusActive)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("member joined family",
		zap.String("family_id", family.ID),
		zap.String("user_id", userID),
		zap.String("role", string(role)))
	return family, membership, nil
}

// addMember creates or reactivates the user's membership inside tx, checking
// that the family keeps at most one active parent admin.
func (s *FamilyService) addMember(ctx context.Context, tx *database.Tx, family *models.Family, userID string, role models.Role, status models.MembershipStatus) (*models.Membership, error) {
	profile, err := repository.NewProfileRepository(tx).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	memberships := repository.NewMembershipRepository(tx)
	if err := s.loadMembers(ctx, memberships, family); err != nil {
		return nil, err
	}

	existing := family.MembershipFor(userID)
	if existing != nil && existing.IsActive() {
		return nil, apperr.NewFamilyCreationError(apperr.AlreadyMember, ErrAlreadyMember)
	}

	var id string
	if existing != nil {
		id = existing.ID
	}
	if status == models.StatusActive {
		if err := family.CanAssign(role, id); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		// Returning members keep their membership row
		existing.ChangeRole(role)
		existing.SetStatus(status)
		if err := s.memberWriteError(memberships.Update(ctx, existing), role); err != nil {
			return nil, err
		}
		return existing, nil
	}

	m := models.NewMembership(uuid.NewString(), family.ID, userID, role)
	m.Status = status
	if err := family.AddMembership(m); err != nil {
		return nil, err
	}
	if err := s.memberWriteError(memberships.Create(ctx, m), role); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *FamilyService) loadMembers(ctx context.Context, memberships *repository.MembershipRepository, family *models.Family) error {
	members, err := memberships.ListByFamily(ctx, family.ID)
	if err != nil {
		return err
	}
	family.Memberships = members
	return nil
}

// requireParentAdmin loads the family of a membership and checks that actor is
// its active parent admin.
func (s *FamilyService) requireParentAdmin(ctx context.Context, db database.DBTX, actorID, familyID string) (*models.Family, error) {
	family, err := repository.NewFamilyRepository(db).GetByID(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	if err := s.loadMembers(ctx, repository.NewMembershipRepository(db), family); err != nil {
		return nil, err
	}

	actor := family.MembershipFor(actorID)
	if actor == nil || !actor.IsActive() {
		return nil, ErrNotFamilyMember
	}
	if !actor.Role.CanManageMembers() {
		return nil, ErrPermissionDenied
	}
	return family, nil
}

func findMembership(family *models.Family, membershipID string) *models.Membership {
	for _, m := range family.Memberships {
		if m.ID == membershipID {
			return m
		}
	}
	return nil
}

// AssignRole changes the role of a membership. Only the parent admin may do
// this. Giving parent_admin to another active member hands the role over and
// demotes the actor to adult in the same transaction.
func (s *FamilyService) AssignRole(ctx context.Context, actorID, membershipID string, role models.Role) (*models.Membership, error) {
	if !role.IsValid() {
		return nil, validation.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}

	var (
		target   *models.Membership
		handover bool
	)
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		memberships := repository.NewMembershipRepository(tx)
		m, err := memberships.GetByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrMembershipNotFound
		}

		family, err := s.requireParentAdmin(ctx, tx, actorID, m.FamilyID)
		if err != nil {
			return err
		}
		target = findMembership(family, membershipID)
		admin := family.ParentAdmin()

		if target.ID == admin.ID {
			if role != models.RoleParentAdmin {
				return ErrParentAdminRequired
			}
			return nil
		}
		if role != models.RoleParentAdmin {
			target.ChangeRole(role)
			return memberships.Update(ctx, target)
		}
		if !target.IsActive() {
			return ErrNotFamilyMember
		}

		// The demotion is written and stamped first so it also syncs first
		admin.ChangeRole(models.RoleAdult)
		if err := memberships.Update(ctx, admin); err != nil {
			return err
		}
		target.ChangeRole(models.RoleParentAdmin)
		if !target.UpdatedAt.After(admin.UpdatedAt) {
			changed := admin.UpdatedAt.Add(time.Microsecond)
			target.UpdatedAt = changed
			target.LastRoleChangeAt = &changed
		}
		handover = true
		return s.memberWriteError(memberships.Update(ctx, target), role)
	})
	if err != nil {
		return nil, err
	}

	if handover {
		s.logger.Info("parent admin handed over",
			zap.String("membership_id", membershipID),
			zap.String("actor_id", actorID))
		return target, nil
	}
	s.logger.Info("role assigned",
		zap.String("membership_id", membershipID),
		zap.String("role", string(role)),
		zap.String("actor_id", actorID))
	return target, nil
}

// memberWriteError maps a unique index violation from a concurrent writer onto
// the rule the pre-write checks enforce.
func (s *FamilyService) memberWriteError(err error, role models.Role) error {
	if err == nil || !s.db.Dialect.IsUniqueViolation(err) {
		return err
	}
	if role == models.RoleParentAdmin {
		return ErrParentAdminExists
	}
	return apperr.NewFamilyCreationError(apperr.AlreadyMember, ErrAlreadyMember)
}

// RemoveMember marks a membership removed. The parent admin cannot be removed.
func (s *FamilyService) RemoveMember(ctx context.Context, actorID, membershipID string) error {
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		memberships := repository.NewMembershipRepository(tx)
		m, err := memberships.GetByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrMembershipNotFound
		}

		family, err := s.requireParentAdmin(ctx, tx, actorID, m.FamilyID)
		if err != nil {
			return err
		}
		target := findMembership(family, membershipID)
		if target.IsActive() && target.Role == models.RoleParentAdmin {
			return ErrParentAdminRequired
		}

		target.SetStatus(models.StatusRemoved)
		return memberships.Update(ctx, target)
	})
	if err != nil {
		return err
	}

	s.logger.Info("member removed", zap.String("membership_id", membershipID), zap.String("actor_id", actorID))
	return nil
}

// LeaveFamily removes the user's own membership. A parent admin can only
// leave once no other active members remain.
func (s *FamilyService) LeaveFamily(ctx context.Context, userID, familyID string) error {
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		family, err := repository.NewFamilyRepository(tx).GetByID(ctx, familyID)
		if err != nil {
			return err
		}
		if family == nil {
			return ErrFamilyNotFound
		}

		memberships := repository.NewMembershipRepository(tx)
		if err := s.loadMembers(ctx, memberships, family); err != nil {
			return err
		}
		m := family.MembershipFor(userID)
		if m == nil || !m.IsActive() {
			return ErrNotFamilyMember
		}
		if m.Role == models.RoleParentAdmin && family.MemberCount() > 1 {
			return ErrParentAdminRequired
		}

		m.SetStatus(models.StatusRemoved)
		return memberships.Update(ctx, m)
	})
	if err != nil {
		return err
	}

	s.logger.Info("member left family", zap.String("family_id", familyID), zap.String("user_id", userID))
	return nil
}

// InviteMember stores an invitation and emails its link to the invitee
func (s *FamilyService) InviteMember(ctx context.Context, actorID, familyID, email string, role models.Role) (*models.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleAdult
	}
	if !role.IsValid() {
		return nil, validation.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	if role == models.RoleParentAdmin {
		return nil, ErrInvitationNotAllowed
	}

	token, err := credentials.GenerateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}

	var (
		family  *models.Family
		inviter *models.UserProfile
	)
	now := models.Timestamp()
	inv := &models.Invitation{
		ID:        uuid.NewString(),
		Token:     token,
		FamilyID:  familyID,
		Email:     email,
		Role:      role,
		InvitedBy: actorID,
		CreatedAt: now,
		ExpiresAt: now.Add(invitationTTL),
	}

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		family, err = s.requireParentAdmin(ctx, tx, actorID, familyID)
		if err != nil {
			return err
		}
		inviter, err = repository.NewProfileRepository(tx).GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		return repository.NewInvitationRepository(tx).Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	if s.invites != nil {
		inviterName := "A family member"
		if inviter != nil {
			inviterName = inviter.DisplayName
		}
		// The invitation stays valid when delivery fails; the link can be shared by hand
		if err := s.invites.SendFamilyInvitation(ctx, inv, family.Name, inviterName); err != nil {
			s.logger.Error("failed to send invitation email", zap.String("invitation_id", inv.ID), zap.Error(err))
		}
	}

	s.logger.Info("member invited", zap.String("family_id", familyID), zap.String("role", string(role)))
	return inv, nil
}

// AcceptInvitation turns a valid invitation into an active membership for the user
func (s *FamilyService) AcceptInvitation(ctx context.Context, userID, token string) (*models.Family, *models.Membership, error) {
	var (
		family     *models.Family
		membership *models.Membership
	)
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		invitations := repository.NewInvitationRepository(tx)
		inv, err := invitations.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInvitationNotFound
		}
		if inv.IsUsed() {
			return ErrInvitationUsed
		}
		if inv.IsExpired() {
			return ErrInvitationExpired
		}

		family, err = repository.NewFamilyRepository(tx).GetByID(ctx, inv.FamilyID)
		if err != nil {
			return err
		}
		if family == nil {
			return ErrFamilyNotFound
		}

		membership, err = s.addMember(ctx, tx, family, userID, inv.Role, models.StatusInvited)
		if err != nil {
			return err
		}
		if err := family.CanAssign(membership.Role, membership.ID); err != nil {
			return err
		}
		membership.SetStatus(models.StatusActive)
		if err := repository.NewMembershipRepository(tx).Update(ctx, membership); err != nil {
			return err
		}

		claimed, err := invitations.MarkUsed(ctx, token, userID, models.Timestamp())
		if err != nil {
			return err
		}
		if !claimed {
			return ErrInvitationUsed
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("invitation accepted", zap.String("family_id", family.ID), zap.String("user_id", userID))
	return family, membership, nil
}

// GetFamily retrieves a family with its memberships
func (s *FamilyService) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := repository.NewFamilyRepository(s.db).GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	if err := s.loadMembers(ctx, repository.NewMembershipRepository(s.db), family); err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return family, nil
}

// GetUserFamilies retrieves the families where the user is an active member
func (s *FamilyService) GetUserFamilies(ctx context.Context, userID string) ([]*models.Family, error) {
	families, err := repository.NewFamilyRepository(s.db).ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user families: %w", err)
	}
	return families, nil
}

// GetFamilyMembers returns the active members of a family with their profiles
func (s *FamilyService) GetFamilyMembers(ctx context.Context, familyID string) ([]FamilyMember, error) {
	family, err := s.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}

	profiles := repository.NewProfileRepository(s.db)
	var members []FamilyMember
	for _, m := range family.ActiveMembers() {
		profile, err := profiles.GetByID(ctx, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get member profile: %w", err)
		}
		if profile == nil {
			return nil, fmt.Errorf("membership %s: %w", m.ID, ErrProfileNotFound)
		}
		members = append(members, FamilyMember{Membership: m, Profile: profile})
	}
	return members, nil
}

// VerifyFamilyAccess checks that the user is an active member and returns the membership
func (s *FamilyService) VerifyFamilyAccess(ctx context.Context, userID, familyID string) (*models.Membership, error) {
	m, err := repository.NewMembershipRepository(s.db).GetByFamilyAndUser(ctx, familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify family access: %w", err)
	}
	if m == nil || !m.IsActive() {
		return nil, ErrNotFamilyMember
	}
	return m, nil
}
