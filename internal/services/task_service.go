package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/repository"
	"github.com/Pokatocz/quest-and-check/internal/storage"
)

// EvidencePolicy bounds how many photos a completion must carry.
type EvidencePolicy struct {
	MinPhotos    int
	MaxPhotos    int
	MaxPhotoSize int64 // bytes per photo
}

// PhotoBytes is the most photo data a single completion may carry, or 0
// when either the count or the size is unbounded.
func (p EvidencePolicy) PhotoBytes() int64 {
	if p.MaxPhotos <= 0 || p.MaxPhotoSize <= 0 {
		return 0
	}
	return int64(p.MaxPhotos) * p.MaxPhotoSize
}

type CreateTaskInput struct {
	Title       string `json:"title" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=2000"`
	XP          int    `json:"xp" validate:"gte=0"`
	Location    string `json:"location" validate:"max=200"`
	AssignedTo  *uint  `json:"assigned_to"`
}

type TeamStats struct {
	Active    int64           `json:"active"`
	Pending   int64           `json:"pending"`
	Completed int64           `json:"completed"`
	Rejected  int64           `json:"rejected"`
	Total     int64           `json:"total"`
	Role      models.TeamRole `json:"role"`
	Ledger    Ledger          `json:"ledger"`
}

type TaskService struct {
	taskRepo *repository.TaskRepository
	roles    *RoleResolver
	store    ObjectStore
	changes  ChangePublisher
	policy   EvidencePolicy
	now      func() time.Time
}

func NewTaskService(
	taskRepo *repository.TaskRepository,
	roles *RoleResolver,
	store ObjectStore,
	changes ChangePublisher,
	policy EvidencePolicy,
) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		roles:    roles,
		store:    store,
		changes:  publisherOrDiscard(changes),
		policy:   policy,
		now:      time.Now,
	}
}

func (s *TaskService) Policy() EvidencePolicy {
	return s.policy
}

func (s *TaskService) CreateTask(actorID, teamID uint, input CreateTaskInput) (*models.Task, error) {
	if _, err := s.roles.Require(teamID, actorID, ActionCreateTask); err != nil {
		return nil, err
	}

	task, err := s.prepareTask(actorID, teamID, input)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, storeErr("create task", err)
	}

	notify(s.changes, realtime.TableTasks, realtime.EventInsert, teamID, task.ID)
	return task, nil
}

// ImportSkip records an input that ImportTasks left out.
type ImportSkip struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  []ImportSkip `json:"skipped,omitempty"`
}

// ImportTasks creates many tasks in one insert. Invalid inputs are skipped
// when skipInvalid is set; otherwise the first one aborts the import and
// nothing is written.
func (s *TaskService) ImportTasks(actorID, teamID uint, inputs []CreateTaskInput, skipInvalid bool) (*ImportResult, error) {
	if _, err := s.roles.Require(teamID, actorID, ActionCreateTask); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	tasks := make([]models.Task, 0, len(inputs))
	for i, input := range inputs {
		task, err := s.prepareTask(actorID, teamID, input)
		if err != nil {
			if !skipInvalid || !errors.Is(err, ErrValidation) {
				return nil, fmt.Errorf("task %d (%q): %w", i, input.Title, err)
			}
			result.Skipped = append(result.Skipped, ImportSkip{Index: i, Title: input.Title, Reason: err.Error()})
			continue
		}
		tasks = append(tasks, *task)
	}

	if err := s.taskRepo.CreateBatch(tasks); err != nil {
		return nil, storeErr("import tasks", err)
	}
	for _, task := range tasks {
		notify(s.changes, realtime.TableTasks, realtime.EventInsert, teamID, task.ID)
	}
	result.Imported = len(tasks)
	return result, nil
}

// prepareTask validates input and builds the task row. The caller has
// already been checked for the create_task capability.
func (s *TaskService) prepareTask(actorID, teamID uint, input CreateTaskInput) (*models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Location = strings.TrimSpace(input.Location)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		assignee, err := s.roles.Resolve(teamID, *input.AssignedTo)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, ErrAssigneeNotMember
			}
			return nil, err
		}
		if !assignee.Member {
			return nil, ErrAssigneeNotMember
		}
	}

	return &models.Task{
		TeamID:         teamID,
		Title:          input.Title,
		Description:    input.Description,
		XP:             input.XP,
		Location:       input.Location,
		AssignedTo:     input.AssignedTo,
		CreatedBy:      actorID,
		ApprovalStatus: models.ApprovalNone,
	}, nil
}

func (s *TaskService) GetTask(actorID, taskID uint) (*models.Task, error) {
	task, _, err := s.load(actorID, taskID, ActionViewTeam)
	return task, err
}

func (s *TaskService) ListTasks(actorID, teamID uint, view models.TaskView) ([]models.Task, error) {
	if !view.Valid() {
		return nil, ErrInvalidView
	}
	if _, err := s.roles.Require(teamID, actorID, ActionViewTeam); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByTeam(teamID, view)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) TeamStats(actorID, teamID uint) (*TeamStats, error) {
	standing, err := s.roles.Require(teamID, actorID, ActionViewTeam)
	if err != nil {
		return nil, err
	}

	stats := &TeamStats{Role: standing.Role}
	counts := []struct {
		view models.TaskView
		dst  *int64
	}{
		{models.ViewActive, &stats.Active},
		{models.ViewPending, &stats.Pending},
		{models.ViewCompleted, &stats.Completed},
		{models.ViewRejected, &stats.Rejected},
		{models.ViewAll, &stats.Total},
	}
	for _, c := range counts {
		n, err := s.taskRepo.CountByTeam(teamID, c.view)
		if err != nil {
			return nil, storeErr("count tasks", err)
		}
		*c.dst = n
	}

	stats.Ledger, err = s.ledger(teamID, actorID)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// UserLedger computes the user's reward ledger within teamID, or across every
// team when teamID is 0.
func (s *TaskService) UserLedger(userID, teamID uint) (Ledger, error) {
	if teamID != 0 {
		if _, err := s.roles.Require(teamID, userID, ActionViewTeam); err != nil {
			return Ledger{}, err
		}
	}
	return s.ledger(teamID, userID)
}

func (s *TaskService) ledger(teamID, userID uint) (Ledger, error) {
	tasks, err := s.taskRepo.ListApprovedForUser(teamID, userID)
	if err != nil {
		return Ledger{}, storeErr("list approved tasks", err)
	}
	return ComputeLevel(TotalReward(tasks, userID)), nil
}

// Reserve gives actorID the single-holder claim on an open task. Reserving a
// task one already holds is a no-op.
func (s *TaskService) Reserve(actorID, taskID uint) (*models.Task, error) {
	task, _, err := s.load(actorID, taskID, ActionReserveTask)
	if err != nil {
		return nil, err
	}

	if task.ReservedBy != nil {
		if *task.ReservedBy == actorID {
			return task, nil
		}
		return nil, ErrTaskReserved
	}
	if state := task.State(); state != models.TaskOpen && state != models.TaskRejected {
		return nil, ErrTaskNotOpen
	}

	ok, err := s.taskRepo.Reserve(taskID, actorID, s.now())
	if err != nil {
		return nil, storeErr("reserve task", err)
	}
	if !ok {
		return nil, s.classifyLostRace(taskID, ErrTaskReserved)
	}

	return s.reloadAndNotify(task.TeamID, taskID)
}

// Release clears a reservation. The holder may always release; anyone else
// needs the release_any_reservation capability.
func (s *TaskService) Release(actorID, taskID uint) (*models.Task, error) {
	task, standing, err := s.load(actorID, taskID, ActionViewTeam)
	if err != nil {
		return nil, err
	}
	if task.ReservedBy == nil {
		return nil, ErrTaskNotReserved
	}

	var holder *uint
	if *task.ReservedBy == actorID {
		holder = &actorID
	} else if !standing.Can(ActionReleaseAny) {
		return nil, ErrNotReservationHolder
	}

	ok, err := s.taskRepo.Release(taskID, holder)
	if err != nil {
		return nil, storeErr("release task", err)
	}
	if !ok {
		return nil, s.classifyLostRace(taskID, ErrConcurrentChange)
	}

	return s.reloadAndNotify(task.TeamID, taskID)
}

// Complete submits evidence for a task and puts it up for review. Photos are
// checked against the policy before anything is stored.
func (s *TaskService) Complete(ctx context.Context, actorID, taskID uint, photos []Photo) (*models.Task, error) {
	if len(photos) < s.policy.MinPhotos {
		return nil, fmt.Errorf("%w: at least %d required, got %d", ErrInsufficientEvidence, s.policy.MinPhotos, len(photos))
	}
	if s.policy.MaxPhotos > 0 && len(photos) > s.policy.MaxPhotos {
		return nil, fmt.Errorf("%w: at most %d allowed, got %d", ErrTooManyPhotos, s.policy.MaxPhotos, len(photos))
	}
	exts := make([]string, len(photos))
	for i, p := range photos {
		ext, err := photoExtension(p.Filename)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, p.Filename)
		}
		exts[i] = ext
	}

	task, _, err := s.load(actorID, taskID, ActionCompleteTask)
	if err != nil {
		return nil, err
	}
	if task.ReservedBy != nil && *task.ReservedBy != actorID {
		return nil, ErrTaskReserved
	}
	switch task.State() {
	case models.TaskOpen, models.TaskReserved, models.TaskRejected:
	default:
		return nil, ErrTaskNotOpen
	}

	urls := make([]string, len(photos))
	for i, p := range photos {
		objectPath := fmt.Sprintf("%d/%s%s", actorID, uuid.NewString(), exts[i])
		stored, err := s.store.Put(ctx, storage.BucketTaskPhotos, objectPath, p.Body)
		if err != nil {
			return nil, &StoreError{Op: "upload evidence", Err: err}
		}
		urls[i] = s.store.PublicURL(storage.BucketTaskPhotos, stored)
	}

	encoded, err := models.EncodeEvidence(urls)
	if err != nil {
		return nil, err
	}

	ok, err := s.taskRepo.Complete(taskID, actorID, encoded, s.now())
	if err != nil {
		return nil, storeErr("complete task", err)
	}
	if !ok {
		// uploaded objects stay behind; evidence cleanup is not guaranteed
		return nil, s.classifyLostRace(taskID, ErrConcurrentChange)
	}

	return s.reloadAndNotify(task.TeamID, taskID)
}

// Review records the approve/reject decision on a pending submission.
func (s *TaskService) Review(actorID, taskID uint, decision models.ApprovalStatus) (*models.Task, error) {
	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return nil, ErrInvalidDecision
	}

	task, _, err := s.load(actorID, taskID, ActionReviewTask)
	if err != nil {
		return nil, err
	}
	if task.State() != models.TaskPendingApproval {
		return nil, ErrTaskNotPending
	}

	ok, err := s.taskRepo.Review(taskID, decision)
	if err != nil {
		return nil, storeErr("review task", err)
	}
	if !ok {
		return nil, s.classifyLostRace(taskID, ErrTaskNotPending)
	}

	return s.reloadAndNotify(task.TeamID, taskID)
}

// Delete removes the task in any state. Its evidence objects are not removed.
func (s *TaskService) Delete(actorID, taskID uint) error {
	task, _, err := s.load(actorID, taskID, ActionDeleteTask)
	if err != nil {
		return err
	}

	ok, err := s.taskRepo.Delete(taskID)
	if err != nil {
		return storeErr("delete task", err)
	}
	if !ok {
		return ErrTaskNotFound
	}

	notify(s.changes, realtime.TableTasks, realtime.EventDelete, task.TeamID, taskID)
	return nil
}

// ReleaseStaleReservations clears reservations older than ttl and returns how
// many were released.
func (s *TaskService) ReleaseStaleReservations(ttl time.Duration) (int, error) {
	released, err := s.taskRepo.ReleaseStale(s.now().Add(-ttl))
	for _, task := range released {
		notify(s.changes, realtime.TableTasks, realtime.EventUpdate, task.TeamID, task.ID)
	}
	if err != nil {
		return len(released), storeErr("release stale reservations", err)
	}
	return len(released), nil
}

func (s *TaskService) load(actorID, taskID uint, action Action) (*models.Task, *Standing, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		return nil, nil, storeErr("load task", err)
	}

	standing, err := s.roles.Require(task.TeamID, actorID, action)
	if err != nil {
		return nil, nil, err
	}
	return task, standing, nil
}

// classifyLostRace explains why a conditional update matched no row.
func (s *TaskService) classifyLostRace(taskID uint, fallback error) error {
	_, err := s.taskRepo.FindByID(taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	return fallback
}

func (s *TaskService) reloadAndNotify(teamID, taskID uint) (*models.Task, error) {
	notify(s.changes, realtime.TableTasks, realtime.EventUpdate, teamID, taskID)

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, storeErr("reload task", err)
	}
	return task, nil
}
