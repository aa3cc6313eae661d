package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/data/repos"
	types "github.com/banquito-core/formalization-backend/internal/domain"
)

// appendEvent writes one audit row inside the caller's transaction. Detail
// marshalling failures degrade to an empty detail rather than aborting the
// business transaction.
func appendEvent(ctx context.Context, tx *gorm.DB, eventRepo repos.ContractEventRepo, entityKind string, entityID int64, action string, detail map[string]any) error {
	var raw datatypes.JSON
	if len(detail) > 0 {
		if b, err := json.Marshal(detail); err == nil {
			raw = datatypes.JSON(b)
		}
	}
	_, err := eventRepo.Append(ctx, tx, &types.ContractEvent{
		EntityKind: entityKind,
		EntityID:   entityID,
		Action:     action,
		Detail:     raw,
		CreatedAt:  time.Now().UTC(),
	})
	return err
}
