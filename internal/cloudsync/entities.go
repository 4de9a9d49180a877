package cloudsync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tribeboard/internal/cloud"
	"tribeboard/internal/database"
	"tribeboard/internal/models"
	"tribeboard/internal/repository"
)

// entitySyncer binds one record type to its local repository
type entitySyncer[T models.Syncable] struct {
	recordType string
	listDirty  func(ctx context.Context, db database.DBTX) ([]T, error)
	get        func(ctx context.Context, db database.DBTX, id string) (T, bool, error)
	upsert     func(ctx context.Context, db database.DBTX, entity T) error
	markSynced func(ctx context.Context, db database.DBTX, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error)
	toRecord   func(entity T) *cloud.Record
	fromRecord func(rec *cloud.Record) (T, error)
	// guard, when set, checks a pulled entity against local rules before it is
	// stored. It may correct the entity, marking it dirty, and reports whether it did.
	guard func(ctx context.Context, db database.DBTX, entity T) (bool, error)
}

// recordSyncer erases the entity type so the engine can walk all record types in order
type recordSyncer interface {
	RecordType() string
	push(ctx context.Context, e *Engine) (int, error)
	apply(ctx context.Context, db database.DBTX, rec *cloud.Record) (outcome, error)
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
	// outcomeOverwritten is a server change that replaced unpushed local edits
	outcomeOverwritten
	// outcomeKeptLocal is a local edit newer than the server change
	outcomeKeptLocal
	// outcomeCorrected is a server change stored only after a local rule corrected it
	outcomeCorrected
)

func (s *entitySyncer[T]) RecordType() string { return s.recordType }

func (s *entitySyncer[T]) push(ctx context.Context, e *Engine) (int, error) {
	dirty, err := s.listDirty(ctx, e.db)
	if err != nil {
		return 0, err
	}

	pushed := 0
	for _, entity := range dirty {
		saved, err := e.remote.Save(ctx, s.toRecord(entity))
		if err != nil {
			return pushed, err
		}
		var clean bool
		err = e.db.WithTx(ctx, func(tx *database.Tx) error {
			var err error
			clean, err = s.markSynced(ctx, tx, entity.EntityID(), saved.RecordName, saved.ModifiedAt, entity.UpdatedTime())
			return err
		})
		if err != nil {
			return pushed, err
		}
		if !clean {
			e.logger.Debug("record edited during push, left dirty",
				zap.String("record_type", s.recordType),
				zap.String("record_name", saved.RecordName))
		}
		pushed++
	}
	return pushed, nil
}

func (s *entitySyncer[T]) apply(ctx context.Context, db database.DBTX, rec *cloud.Record) (outcome, error) {
	local, found, err := s.get(ctx, db, rec.RecordName)
	if err != nil {
		return outcomeUnchanged, err
	}

	if !found {
		entity, err := s.fromRecord(rec)
		if err != nil {
			return outcomeUnchanged, err
		}
		entity.Sync().MarkAsSynced(rec.ModifiedAt)
		corrected, err := s.check(ctx, db, entity)
		if err != nil {
			return outcomeUnchanged, err
		}
		if err := s.upsert(ctx, db, entity); err != nil {
			return outcomeUnchanged, err
		}
		if corrected {
			return outcomeCorrected, nil
		}
		return outcomeCreated, nil
	}

	resolution := DetectConflict(local, rec)
	wasDirty := local.Sync().NeedsSync
	changed, err := ResolveConflict(local, rec, resolution)
	if err != nil {
		return outcomeUnchanged, err
	}
	if resolution == ConflictLocalNewer {
		return outcomeKeptLocal, nil
	}
	if !changed {
		return outcomeUnchanged, nil
	}
	corrected, err := s.check(ctx, db, local)
	if err != nil {
		return outcomeUnchanged, err
	}
	if err := s.upsert(ctx, db, local); err != nil {
		return outcomeUnchanged, err
	}
	if corrected {
		return outcomeCorrected, nil
	}
	if wasDirty {
		return outcomeOverwritten, nil
	}
	return outcomeUpdated, nil
}

func (s *entitySyncer[T]) check(ctx context.Context, db database.DBTX, entity T) (bool, error) {
	if s.guard == nil {
		return false, nil
	}
	return s.guard(ctx, db, entity)
}

// keepSingleParentAdmin demotes a pulled active parent admin to adult when the
// family already has a different one locally. The demotion is pushed back on
// the next run so every device converges on the local admin.
func keepSingleParentAdmin(ctx context.Context, db database.DBTX, m *models.Membership) (bool, error) {
	if !m.IsActive() || m.Role != models.RoleParentAdmin {
		return false, nil
	}
	members, err := repository.NewMembershipRepository(db).ListByFamily(ctx, m.FamilyID)
	if err != nil {
		return false, err
	}
	family := &models.Family{ID: m.FamilyID, Memberships: members}
	if err := family.CanAssign(m.Role, m.ID); err == nil {
		return false, nil
	}
	m.ChangeRole(models.RoleAdult)
	return true, nil
}

func profileSyncer() recordSyncer {
	return &entitySyncer[*models.UserProfile]{
		recordType: cloud.RecordTypeUserProfile,
		listDirty: func(ctx context.Context, db database.DBTX) ([]*models.UserProfile, error) {
			return repository.NewProfileRepository(db).ListNeedsSync(ctx)
		},
		get: func(ctx context.Context, db database.DBTX, id string) (*models.UserProfile, bool, error) {
			p, err := repository.NewProfileRepository(db).GetByID(ctx, id)
			return p, p != nil, err
		},
		upsert: func(ctx context.Context, db database.DBTX, p *models.UserProfile) error {
			return repository.NewProfileRepository(db).Upsert(ctx, p)
		},
		markSynced: func(ctx context.Context, db database.DBTX, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
			return repository.NewProfileRepository(db).MarkSynced(ctx, id, recordID, at, pushedUpdatedAt)
		},
		toRecord:   cloud.UserProfileToRecord,
		fromRecord: cloud.UserProfileFromRecord,
	}
}

func familySyncer() recordSyncer {
	return &entitySyncer[*models.Family]{
		recordType: cloud.RecordTypeFamily,
		listDirty: func(ctx context.Context, db database.DBTX) ([]*models.Family, error) {
			return repository.NewFamilyRepository(db).ListNeedsSync(ctx)
		},
		get: func(ctx context.Context, db database.DBTX, id string) (*models.Family, bool, error) {
			f, err := repository.NewFamilyRepository(db).GetByID(ctx, id)
			return f, f != nil, err
		},
		upsert: func(ctx context.Context, db database.DBTX, f *models.Family) error {
			return repository.NewFamilyRepository(db).Upsert(ctx, f)
		},
		markSynced: func(ctx context.Context, db database.DBTX, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
			return repository.NewFamilyRepository(db).MarkSynced(ctx, id, recordID, at, pushedUpdatedAt)
		},
		toRecord:   cloud.FamilyToRecord,
		fromRecord: cloud.FamilyFromRecord,
	}
}

func membershipSyncer() recordSyncer {
	return &entitySyncer[*models.Membership]{
		recordType: cloud.RecordTypeMembership,
		listDirty: func(ctx context.Context, db database.DBTX) ([]*models.Membership, error) {
			return repository.NewMembershipRepository(db).ListNeedsSync(ctx)
		},
		get: func(ctx context.Context, db database.DBTX, id string) (*models.Membership, bool, error) {
			m, err := repository.NewMembershipRepository(db).GetByID(ctx, id)
			return m, m != nil, err
		},
		upsert: func(ctx context.Context, db database.DBTX, m *models.Membership) error {
			return repository.NewMembershipRepository(db).Upsert(ctx, m)
		},
		markSynced: func(ctx context.Context, db database.DBTX, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
			return repository.NewMembershipRepository(db).MarkSynced(ctx, id, recordID, at, pushedUpdatedAt)
		},
		toRecord:   cloud.MembershipToRecord,
		fromRecord: cloud.MembershipFromRecord,
		guard:      keepSingleParentAdmin,
	}
}

// syncers lists record types in dependency order
func syncers() []recordSyncer {
	return []recordSyncer{profileSyncer(), familySyncer(), membershipSyncer()}
}
