package repository

import (
	"time"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"gorm.io/gorm"
)

// Every lifecycle transition below is a single conditional UPDATE. A false
// result means the row no longer satisfied the precondition when the write
// reached the database.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

func (r *TaskRepository) CreateBatch(tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(tasks, 100).Error
}

func (r *TaskRepository) FindByID(id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func viewScope(view models.TaskView) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch view {
		case models.ViewActive:
			return db.Where("completed = ?", false)
		case models.ViewPending:
			return db.Where("completed = ? AND approval_status = ?", true, models.ApprovalPending)
		case models.ViewCompleted:
			return db.Where("completed = ? AND approval_status = ?", true, models.ApprovalApproved)
		case models.ViewRejected:
			return db.Where("completed = ? AND approval_status = ?", true, models.ApprovalRejected)
		default:
			return db
		}
	}
}

func (r *TaskRepository) ListByTeam(teamID uint, view models.TaskView) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.Scopes(viewScope(view)).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) CountByTeam(teamID uint, view models.TaskView) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).
		Scopes(viewScope(view)).
		Where("team_id = ?", teamID).
		Count(&count).Error
	return count, err
}

// ListApproved returns the team's approved tasks in completion order, which is
// the order leaderboard ties are broken by.
func (r *TaskRepository) ListApproved(teamID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.Scopes(viewScope(models.ViewCompleted)).
		Where("team_id = ?", teamID).
		Order("completed_at ASC").
		Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListApprovedForUser returns tasks approved for userID. teamID 0 spans all teams.
func (r *TaskRepository) ListApprovedForUser(teamID, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	db := r.db.Scopes(viewScope(models.ViewCompleted)).Where("completed_by = ?", userID)
	if teamID != 0 {
		db = db.Where("team_id = ?", teamID)
	}
	err := db.Order("completed_at ASC").Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// Reserve claims an open (or rejected, awaiting resubmission) task that no one holds.
func (r *TaskRepository) Reserve(id, userID uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.Task{}).
		Where("id = ? AND reserved_by IS NULL", id).
		Where("completed = ? OR approval_status = ?", false, models.ApprovalRejected).
		Updates(map[string]interface{}{
			"reserved_by": userID,
			"reserved_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

// Release clears the reservation. A non-nil holder restricts the release to
// that user's own reservation.
func (r *TaskRepository) Release(id uint, holder *uint) (bool, error) {
	db := r.db.Model(&models.Task{}).Where("id = ?", id)
	if holder != nil {
		db = db.Where("reserved_by = ?", *holder)
	} else {
		db = db.Where("reserved_by IS NOT NULL")
	}
	result := db.Updates(map[string]interface{}{
		"reserved_by": nil,
		"reserved_at": nil,
	})
	return result.RowsAffected > 0, result.Error
}

// Complete records a submission from an open task, the submitter's own
// reservation, or a rejected task, and clears the reservation.
func (r *TaskRepository) Complete(id, userID uint, photoURL string, at time.Time) (bool, error) {
	result := r.db.Model(&models.Task{}).
		Where("id = ?", id).
		Where("reserved_by IS NULL OR reserved_by = ?", userID).
		Where("completed = ? OR approval_status = ?", false, models.ApprovalRejected).
		Updates(map[string]interface{}{
			"completed":       true,
			"completed_by":    userID,
			"photo_url":       photoURL,
			"completed_at":    at,
			"approval_status": models.ApprovalPending,
			"reserved_by":     nil,
			"reserved_at":     nil,
		})
	return result.RowsAffected > 0, result.Error
}

// Review moves a pending submission to approved or rejected.
func (r *TaskRepository) Review(id uint, decision models.ApprovalStatus) (bool, error) {
	result := r.db.Model(&models.Task{}).
		Where("id = ? AND completed = ? AND approval_status = ?", id, true, models.ApprovalPending).
		Update("approval_status", decision)
	return result.RowsAffected > 0, result.Error
}

func (r *TaskRepository) Delete(id uint) (bool, error) {
	result := r.db.Unscoped().Delete(&models.Task{}, id)
	return result.RowsAffected > 0, result.Error
}

// ReleaseStale clears reservations taken before cutoff and returns the
// affected tasks as they were before the release.
func (r *TaskRepository) ReleaseStale(cutoff time.Time) ([]models.Task, error) {
	var stale []models.Task
	err := r.db.Where("reserved_by IS NOT NULL AND reserved_at < ?", cutoff).Find(&stale).Error
	if err != nil || len(stale) == 0 {
		return nil, err
	}

	released := stale[:0]
	for _, task := range stale {
		result := r.db.Model(&models.Task{}).
			Where("id = ? AND reserved_by = ? AND reserved_at < ?", task.ID, *task.ReservedBy, cutoff).
			Updates(map[string]interface{}{
				"reserved_by": nil,
				"reserved_at": nil,
			})
		if result.Error != nil {
			return released, result.Error
		}
		if result.RowsAffected > 0 {
			released = append(released, task)
		}
	}
	return released, nil
}
