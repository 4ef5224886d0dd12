package repo

import (
	"time"

	"github.com/jinzhu/gorm"

	"go-signal-server/models"
	"go-signal-server/utils"
)

// SignalRepo interface for public function
type SignalRepo interface {
	Insert(sig *models.PendingSignal) error
	InsertInvalidating(sig *models.PendingSignal) error
	DeletePair(a, b string) error
	ClaimOldest(to, from, kind string) (*models.PendingSignal, error)
}

// signalRepo implement interface SignalRepo
type signalRepo struct {
	db *gorm.DB
}

// NewSignalRepository dependency injection
func NewSignalRepository(db *gorm.DB) SignalRepo {
	return &signalRepo{db: db}
}

func (r *signalRepo) Insert(sig *models.PendingSignal) error {
	return r.db.Create(sig).Error
}

// InsertInvalidating wipes every undelivered record between the pair and
// inserts the new record in the same transaction, so a failure leaves the
// old records intact.
func (r *signalRepo) InsertInvalidating(sig *models.PendingSignal) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deletePair(tx, sig.FromPeer, sig.ToPeer); err != nil {
			return err
		}
		return tx.Create(sig).Error
	})
}

func (r *signalRepo) DeletePair(a, b string) error {
	return deletePair(r.db, a, b)
}

func deletePair(db *gorm.DB, a, b string) error {
	return db.
		Where("delivered_at IS NULL").
		Where("(to_peer = ? AND from_peer = ?) OR (to_peer = ? AND from_peer = ?)", a, b, b, a).
		Delete(&models.PendingSignal{}).Error
}

// ClaimOldest returns the oldest undelivered record for (to, from) and marks
// it delivered. The mark is a conditional update on delivered_at IS NULL:
// two concurrent claimers can select the same row, but only one update
// matches and the loser moves on to the next pending row.
func (r *signalRepo) ClaimOldest(to, from, kind string) (*models.PendingSignal, error) {
	for {
		var sig models.PendingSignal
		q := r.db.
			Where("to_peer = ? AND from_peer = ?", to, from).
			Where("delivered_at IS NULL")
		if kind != models.KindAny {
			q = q.Where("kind = ?", kind)
		}
		err := q.Order("created_at asc, id asc").First(&sig).Error
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		now := time.Now()
		res := r.db.Model(&models.PendingSignal{}).
			Where("id = ? AND delivered_at IS NULL", sig.ID).
			Update("delivered_at", now)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			sig.DeliveredAt = utils.AsPointer(now)
			return &sig, nil
		}
		// lost the claim race, try the next pending row
	}
}
