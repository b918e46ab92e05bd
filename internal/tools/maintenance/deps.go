package maintenance

import (
	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage"
)

// maintenanceStore is the storage slice the maintenance operations need.
type maintenanceStore interface {
	storage.MaintenanceStore
}
