package services

import (
	"context"
	"fmt"
	"time"

	"github.com/socialnote/apiserver/internal/events"
	"github.com/socialnote/apiserver/internal/store"
	"github.com/socialnote/apiserver/types"
	"go.uber.org/zap"
)

// SocialGraphService runs the friend-request workflow:
// none -> pending (send), pending -> friends (accept), pending -> none (reject).
// Each public operation is exactly one load, transition, save cycle.
type SocialGraphService struct {
	users     UserStore
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewSocialGraphService(users UserStore, publisher events.Publisher, log *zap.Logger) *SocialGraphService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SocialGraphService{
		users:     users,
		publisher: publisher,
		log:       log.Named("social"),
		now:       time.Now,
	}
}

// SendRequest records a pending request from requesterID on targetID's record.
func (s *SocialGraphService) SendRequest(ctx context.Context, requesterID, targetID string) error {
	err := s.users.Update(ctx, func(users types.Store) error {
		return sendRequest(users, requesterID, targetID)
	})
	if err != nil {
		logFailure(s.log, "send_request", err, zap.String("requester_id", requesterID), zap.String("target_id", targetID))
		return err
	}

	s.log.Info("friend request sent", zap.String("requester_id", requesterID), zap.String("target_id", targetID))
	s.publish(ctx, events.FriendRequestSent, requesterID, targetID)
	return nil
}

// AcceptRequest turns the pending request from requesterID into a mutual
// friendship. A request whose requester no longer exists is purged and
// ErrUnknownUser is returned.
func (s *SocialGraphService) AcceptRequest(ctx context.Context, targetID, requesterID string) error {
	var dangling bool
	err := s.users.Update(ctx, func(users types.Store) error {
		var err error
		dangling, err = acceptRequest(users, targetID, requesterID)
		return err
	})
	if err == nil && dangling {
		err = ErrUnknownUser
		s.log.Info("purged friend request from missing user", zap.String("user_id", targetID), zap.String("requester_id", requesterID))
	}
	if err != nil {
		logFailure(s.log, "accept_request", err, zap.String("requester_id", requesterID), zap.String("target_id", targetID))
		return err
	}

	s.log.Info("friend request accepted", zap.String("requester_id", requesterID), zap.String("target_id", targetID))
	s.publish(ctx, events.FriendRequestAccepted, requesterID, targetID)
	return nil
}

// RejectRequest drops the pending request from requesterID without
// creating a friendship.
func (s *SocialGraphService) RejectRequest(ctx context.Context, targetID, requesterID string) error {
	err := s.users.Update(ctx, func(users types.Store) error {
		return rejectRequest(users, targetID, requesterID)
	})
	if err != nil {
		logFailure(s.log, "reject_request", err, zap.String("requester_id", requesterID), zap.String("target_id", targetID))
		return err
	}

	s.log.Info("friend request rejected", zap.String("requester_id", requesterID), zap.String("target_id", targetID))
	s.publish(ctx, events.FriendRequestRejected, requesterID, targetID)
	return nil
}

// PurgeDanglingNotifications removes notifications on userID's record whose
// requester no longer exists and returns how many were removed. Nothing is
// written when there is nothing to remove.
func (s *SocialGraphService) PurgeDanglingNotifications(ctx context.Context, userID string) (int, error) {
	var removed int
	err := s.users.Update(ctx, func(users types.Store) error {
		var err error
		removed, err = purgeDangling(users, userID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		logFailure(s.log, "purge_notifications", err, zap.String("user_id", userID))
		return 0, err
	}
	if removed > 0 {
		s.log.Info("purged dangling notifications", zap.String("user_id", userID), zap.Int("removed", removed))
	}
	return removed, nil
}

// ListPendingNotifications purges dangling requests and returns the
// remaining ones, resolved to their senders, in the order they arrived.
func (s *SocialGraphService) ListPendingNotifications(ctx context.Context, userID string) ([]types.PendingRequest, error) {
	var pending []types.PendingRequest
	err := s.users.Update(ctx, func(users types.Store) error {
		removed, err := purgeDangling(users, userID)
		if err != nil {
			return err
		}
		pending = resolvePending(users, users[userID])
		if removed == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		logFailure(s.log, "list_notifications", err, zap.String("user_id", userID))
		return nil, err
	}
	return pending, nil
}

func (s *SocialGraphService) publish(ctx context.Context, kind events.Kind, requesterID, targetID string) {
	event := events.Event{
		Kind:        kind,
		RequesterID: requesterID,
		TargetID:    targetID,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish social event", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func sendRequest(users types.Store, requesterID, targetID string) error {
	if requesterID == targetID {
		return ErrSelfRequest
	}
	requester, ok := store.FindByID(users, requesterID)
	if !ok {
		return fmt.Errorf("%w: requester %s", ErrUnknownUser, requesterID)
	}
	target, ok := store.FindByID(users, targetID)
	if !ok {
		return fmt.Errorf("%w: target %s", ErrUnknownUser, targetID)
	}
	if requester.HasFriend(targetID) && target.HasFriend(requesterID) {
		return ErrAlreadyFriends
	}
	if target.PendingFrom(requesterID) >= 0 {
		return ErrDuplicateRequest
	}

	target = target.Clone()
	target.Notifications = append(target.Notifications, types.Notification{
		Type: types.NotificationFriendRequest,
		From: requesterID,
	})
	users[targetID] = target
	return nil
}

// acceptRequest reports dangling=true when the request was purged because
// its requester is gone; the snapshot must still be saved in that case.
func acceptRequest(users types.Store, targetID, requesterID string) (dangling bool, err error) {
	if requesterID == targetID {
		return false, ErrSelfRequest
	}
	target, ok := store.FindByID(users, targetID)
	if !ok {
		return false, fmt.Errorf("%w: target %s", ErrUnknownUser, targetID)
	}
	if target.PendingFrom(requesterID) < 0 {
		return false, ErrNoSuchRequest
	}

	target = target.Clone()
	target.Notifications = withoutRequestsFrom(target.Notifications, requesterID)

	requester, ok := store.FindByID(users, requesterID)
	if !ok {
		users[targetID] = target
		return true, nil
	}

	requester = requester.Clone()
	target.Friends = addFriend(target.Friends, requesterID)
	requester.Friends = addFriend(requester.Friends, targetID)
	users[targetID] = target
	users[requesterID] = requester
	return false, nil
}

func rejectRequest(users types.Store, targetID, requesterID string) error {
	target, ok := store.FindByID(users, targetID)
	if !ok {
		return fmt.Errorf("%w: target %s", ErrUnknownUser, targetID)
	}
	if target.PendingFrom(requesterID) < 0 {
		return ErrNoSuchRequest
	}

	target = target.Clone()
	target.Notifications = withoutRequestsFrom(target.Notifications, requesterID)
	users[targetID] = target
	return nil
}

func purgeDangling(users types.Store, userID string) (int, error) {
	user, ok := store.FindByID(users, userID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	kept := make([]types.Notification, 0, len(user.Notifications))
	for _, n := range user.Notifications {
		if _, exists := users[n.From]; exists && n.From != userID {
			kept = append(kept, n)
		}
	}
	removed := len(user.Notifications) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	user = user.Clone()
	user.Notifications = kept
	users[userID] = user
	return removed, nil
}

func resolvePending(users types.Store, user types.User) []types.PendingRequest {
	pending := make([]types.PendingRequest, 0, len(user.Notifications))
	for _, n := range user.Notifications {
		if n.Type != types.NotificationFriendRequest {
			continue
		}
		from, ok := users[n.From]
		if !ok {
			continue
		}
		pending = append(pending, types.PendingRequest{
			From:    from.Summary(),
			Message: fmt.Sprintf("%s wants to be your friend", from.Username),
		})
	}
	return pending
}

func withoutRequestsFrom(notifications []types.Notification, requesterID string) []types.Notification {
	out := make([]types.Notification, 0, len(notifications))
	for _, n := range notifications {
		if n.Type == types.NotificationFriendRequest && n.From == requesterID {
			continue
		}
		out = append(out, n)
	}
	return out
}

func addFriend(friends []string, id string) []string {
	for _, existing := range friends {
		if existing == id {
			return friends
		}
	}
	return append(friends, id)
}
