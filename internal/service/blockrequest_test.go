package service

import (
	"context"
	"sync"
	"testing"

	"github.com/venyaka/Bank-REST/internal/cardcrypt"
	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlockRequestStore struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*models.CardBlockRequest
}

func newFakeBlockRequestStore() *fakeBlockRequestStore {
	return &fakeBlockRequestStore{nextID: 1, requests: make(map[int64]*models.CardBlockRequest)}
}

func (s *fakeBlockRequestStore) CreateBlockRequest(_ context.Context, req *models.CardBlockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.nextID
	s.nextID++
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *fakeBlockRequestStore) FindBlockRequestByID(_ context.Context, id int64) (*models.CardBlockRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, models.ErrBlockRequestNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *fakeBlockRequestStore) FindBlockRequestsByUser(_ context.Context, userID int64) ([]*models.CardBlockRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CardBlockRequest
	for _, r := range s.requests {
		if r.UserID == userID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeBlockRequestStore) FindAllBlockRequests(_ context.Context) ([]*models.CardBlockRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CardBlockRequest
	for _, r := range s.requests {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeBlockRequestStore) SaveBlockRequest(_ context.Context, req *models.CardBlockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return models.ErrBlockRequestNotFound
	}
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func newTestBlockRequestService() (*BlockRequestService, *fakeBlockRequestStore, *fakeCardStore, *CardService) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cards := newFakeCardStore()
	cardSvc := newTestCardService(cards)
	requests := newFakeBlockRequestStore()
	svc := NewBlockRequestService(requests, cards, cardcrypt.NewEncryptor(staticKeys{}), log)
	return svc, requests, cards, cardSvc
}

func TestRequestBlock_OwnerOnly(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())

	_, err := svc.RequestBlock(context.Background(), id, other)
	assert.ErrorIs(t, err, models.ErrNoAccess)

	view, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)
	assert.Equal(t, models.BlockRequestPending, view.Status)
	assert.Equal(t, "**** **** **** 1111", view.MaskedNumber)
	assert.Nil(t, view.ProcessedAt)
}

func TestRequestBlock_MissingCard(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestBlockRequestService()

	_, err := svc.RequestBlock(context.Background(), 9999, owner)
	assert.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestRequestBlock_DuplicatePendingRejected(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())

	_, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)

	_, err = svc.RequestBlock(context.Background(), id, owner)
	assert.ErrorIs(t, err, models.ErrBlockRequestExists)
}

func TestRequestBlock_AllowedAgainAfterRejection(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())

	first, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), first.ID, admin, "not needed")
	require.NoError(t, err)

	_, err = svc.RequestBlock(context.Background(), id, owner)
	assert.NoError(t, err)
}

func TestApprove_BlocksCardAndRecordsDecision(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())
	req, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)

	view, err := svc.Approve(context.Background(), req.ID, admin, "stolen card")
	require.NoError(t, err)
	assert.Equal(t, models.BlockRequestApproved, view.Status)
	assert.Equal(t, "stolen card", view.AdminComment)
	require.NotNil(t, view.AdminID)
	assert.Equal(t, admin.ID, *view.AdminID)
	require.NotNil(t, view.ProcessedAt)

	stored, err := cards.FindCardByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.CardBlocked, stored.Status)
}

func TestReject_LeavesCardUntouched(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())
	req, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)

	view, err := svc.Reject(context.Background(), req.ID, admin, "card is fine")
	require.NoError(t, err)
	assert.Equal(t, models.BlockRequestRejected, view.Status)

	stored, err := cards.FindCardByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.CardActive, stored.Status)
}

func TestProcess_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())
	req, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, owner, "")
	assert.ErrorIs(t, err, models.ErrNoAccess)
	_, err = svc.Reject(context.Background(), req.ID, owner, "")
	assert.ErrorIs(t, err, models.ErrNoAccess)
}

func TestProcess_AlreadyProcessed(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())
	req, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, admin, "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, admin, "")
	assert.ErrorIs(t, err, models.ErrBlockRequestProcessed)
	_, err = svc.Reject(context.Background(), req.ID, admin, "")
	assert.ErrorIs(t, err, models.ErrBlockRequestProcessed)
}

func TestProcess_MissingRequest(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestBlockRequestService()

	_, err := svc.Approve(context.Background(), 9999, admin, "")
	assert.ErrorIs(t, err, models.ErrBlockRequestNotFound)
}

func TestListRequests_ScopedAndAdminGated(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	ownCard := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())
	otherCard := cards.seed(t, cardSvc, other.ID, "10", models.CardActive, futureDate())
	_, err := svc.RequestBlock(context.Background(), ownCard, owner)
	require.NoError(t, err)
	_, err = svc.RequestBlock(context.Background(), otherCard, other)
	require.NoError(t, err)

	mine, err := svc.ListUserRequests(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, owner.ID, mine[0].UserID)

	_, err = svc.ListAllRequests(context.Background(), owner)
	assert.ErrorIs(t, err, models.ErrNoAccess)

	all, err := svc.ListAllRequests(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBlockRequestView_DeletedCardRendersMasked(t *testing.T) {
	t.Parallel()

	svc, _, cards, cardSvc := newTestBlockRequestService()
	id := cards.seed(t, cardSvc, owner.ID, "10", models.CardActive, futureDate())
	_, err := svc.RequestBlock(context.Background(), id, owner)
	require.NoError(t, err)

	stored, err := cards.FindCardByID(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, cards.DeleteCard(context.Background(), stored))

	mine, err := svc.ListUserRequests(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "****", mine[0].MaskedNumber)
}
