package auth

import (
	"context"
	"sync"

	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

// fakeStore is an in-memory store.Identity used by provider tests. It
// enforces the same uniqueness rules as the real store so duplicate inserts
// surface store.ErrDuplicate.
type fakeStore struct {
	mu sync.Mutex

	users  map[uint64]*models.User
	groups map[uint]*models.Group
	roles  map[string]*models.Role
	// memberships maps user ID to the group IDs per source.
	memberships map[uint64]map[models.GroupSource][]uint

	nextUserID  uint64
	nextGroupID uint

	// failCreateUser forces CreateUser to return store.ErrDuplicate once,
	// simulating a concurrent first login.
	failCreateUser bool
	// missFindOnce makes the next FindUserByExternalID miss, so the
	// caller's lookup-then-insert races against an existing record.
	missFindOnce bool
	// failReplaceGroups forces ReplaceUserGroups to fail.
	failReplaceGroups error
}

func newFakeStore() *fakeStore {
	fs := &fakeStore{
		users:       make(map[uint64]*models.User),
		groups:      make(map[uint]*models.Group),
		roles:       make(map[string]*models.Role),
		memberships: make(map[uint64]map[models.GroupSource][]uint),
		nextUserID:  1,
		nextGroupID: 1,
	}

	for i, name := range []string{models.RoleAdmin, models.RoleOperator, models.RoleViewer} {
		fs.roles[name] = &models.Role{ID: uint(i + 1), Name: name}
	}

	return fs
}

func (f *fakeStore) FindUserByID(_ context.Context, id uint64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	clone := *user

	return &clone, nil
}

func (f *fakeStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Username == username {
			clone := *user

			return &clone, nil
		}
	}

	return nil, store.ErrNotFound
}

func (f *fakeStore) FindUserByExternalID(_ context.Context, source models.AuthSource, externalID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.missFindOnce {
		f.missFindOnce = false

		return nil, store.ErrNotFound
	}

	for _, user := range f.users {
		if user.AuthSource == source && user.ExternalID == externalID {
			clone := *user

			return &clone, nil
		}
	}

	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreateUser {
		f.failCreateUser = false

		return store.ErrDuplicate
	}

	for _, existing := range f.users {
		if existing.Username == user.Username {
			return store.ErrDuplicate
		}

		if user.ExternalID != "" &&
			existing.AuthSource == user.AuthSource && existing.ExternalID == user.ExternalID {
			return store.ErrDuplicate
		}
	}

	user.ID = f.nextUserID
	f.nextUserID++

	clone := *user
	f.users[user.ID] = &clone

	return nil
}

func (f *fakeStore) UpdateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[user.ID]; !ok {
		return store.ErrNotFound
	}

	clone := *user
	f.users[user.ID] = &clone

	return nil
}

func (f *fakeStore) UpdateUserRole(_ context.Context, userID uint64, roleID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}

	user.RoleID = roleID

	return nil
}

func (f *fakeStore) FindGroupByExternalID(_ context.Context, source models.GroupSource, externalID string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, group := range f.groups {
		if group.Source == source && group.ExternalID == externalID {
			clone := *group

			return &clone, nil
		}
	}

	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateGroup(_ context.Context, group *models.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.groups {
		if existing.Source == group.Source && existing.ExternalID == group.ExternalID {
			return store.ErrDuplicate
		}
	}

	group.ID = f.nextGroupID
	f.nextGroupID++

	clone := *group
	f.groups[group.ID] = &clone

	return nil
}

func (f *fakeStore) ReplaceUserGroups(_ context.Context, userID uint64, source models.GroupSource, groupIDs []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failReplaceGroups != nil {
		return f.failReplaceGroups
	}

	if f.memberships[userID] == nil {
		f.memberships[userID] = make(map[models.GroupSource][]uint)
	}

	f.memberships[userID][source] = append([]uint(nil), groupIDs...)

	return nil
}

func (f *fakeStore) FindRoleByName(_ context.Context, name string) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[name]
	if !ok {
		return nil, store.ErrNotFound
	}

	clone := *role

	return &clone, nil
}

// userGroups returns the membership group IDs recorded for a user and source.
func (f *fakeStore) userGroups(userID uint64, source models.GroupSource) []uint {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]uint(nil), f.memberships[userID][source]...)
}
