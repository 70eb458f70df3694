package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/repository"
	"github.com/Pokatocz/quest-and-check/internal/storage"
)

const (
	maxMessageLength = 2000
	// photoOnlyContent replaces empty text on a message that carries a photo.
	photoOnlyContent = "Photo"
	chatPhotoURLTTL  = time.Hour
)

type MessageView struct {
	ID         uint      `json:"id"`
	TeamID     uint      `json:"team_id"`
	UserID     uint      `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type MessageService struct {
	messageRepo *repository.MessageRepository
	profileRepo *repository.ProfileRepository
	roles       *RoleResolver
	store       ObjectStore
	changes     ChangePublisher
	now         func() time.Time
}

func NewMessageService(
	messageRepo *repository.MessageRepository,
	profileRepo *repository.ProfileRepository,
	roles *RoleResolver,
	store ObjectStore,
	changes ChangePublisher,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		roles:       roles,
		store:       store,
		changes:     publisherOrDiscard(changes),
		now:         time.Now,
	}
}

// PostMessage appends a chat message. photo may be nil.
func (s *MessageService) PostMessage(ctx context.Context, actorID, teamID uint, content string, photo *Photo) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" && photo == nil {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: content must be at most %d characters", ErrValidation, maxMessageLength)
	}
	var ext string
	if photo != nil {
		var err error
		if ext, err = photoExtension(photo.Filename); err != nil {
			return nil, err
		}
	}

	standing, err := s.roles.Require(teamID, actorID, ActionPostMessage)
	if err != nil {
		return nil, err
	}

	message := &models.Message{TeamID: teamID, UserID: actorID, Content: content}
	if photo != nil {
		objectPath := fmt.Sprintf("%d/%d-%s%s", actorID, s.now().UnixMilli(), uuid.NewString(), ext)
		stored, err := s.store.Put(ctx, storage.BucketChatPhotos, objectPath, photo.Body)
		if err != nil {
			return nil, &StoreError{Op: "upload chat photo", Err: err}
		}
		message.PhotoPath = stored
		if message.Content == "" {
			message.Content = photoOnlyContent
		}
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, storeErr("create message", err)
	}
	notify(s.changes, realtime.TableMessages, realtime.EventInsert, teamID, message.ID)

	return s.view(message, standing.Profile.FullName), nil
}

// ListMessages returns the newest limit messages oldest first, with photo
// paths turned into short-lived signed URLs. limit <= 0 returns all.
func (s *MessageService) ListMessages(actorID, teamID uint, limit int) ([]MessageView, error) {
	if _, err := s.roles.Require(teamID, actorID, ActionViewTeam); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByTeam(teamID, limit)
	if err != nil {
		return nil, storeErr("list messages", err)
	}

	ids := make([]uint, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.UserID)
	}
	names, err := s.profileRepo.DisplayNames(ids)
	if err != nil {
		return nil, storeErr("load display names", err)
	}

	views := make([]MessageView, len(messages))
	for i := range messages {
		name, ok := names[messages[i].UserID]
		if !ok {
			name = UnknownUserName
		}
		views[i] = *s.view(&messages[i], name)
	}
	return views, nil
}

func (s *MessageService) view(m *models.Message, author string) *MessageView {
	v := &MessageView{
		ID:         m.ID,
		TeamID:     m.TeamID,
		UserID:     m.UserID,
		AuthorName: author,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
	if m.PhotoPath != "" {
		// an unsignable path leaves the message without its photo
		if url, err := s.store.SignedURL(storage.BucketChatPhotos, m.PhotoPath, chatPhotoURLTTL); err == nil {
			v.PhotoURL = url
		}
	}
	return v
}
