package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// UploadRepository remembers where each conversation's source document
// was stored on disk, so teardown can remove the file alongside the
// indexed chunks. Entries expire after a day in case a disconnect
// cleanup never fires.
type UploadRepository struct {
	cache *cache.Cache
}

func NewUploadRepository() *UploadRepository {
	c := cache.New(24*time.Hour, 30*time.Minute)
	return &UploadRepository{
		cache: c,
	}
}

func (r *UploadRepository) Save(conversationId uuid.UUID, path string) {
	r.cache.Set(conversationId.String(), path, cache.DefaultExpiration)
}

func (r *UploadRepository) Get(conversationId uuid.UUID) (string, bool) {
	if x, found := r.cache.Get(conversationId.String()); found {
		return x.(string), true
	}
	return "", false
}

func (r *UploadRepository) Delete(conversationId uuid.UUID) {
	r.cache.Delete(conversationId.String())
}
