package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Photo is an uploaded image's metadata. The image bytes are only loaded by
// PhotoRepository.Image.
type Photo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// AspectRatio returns width over height, or 1 for an image with no height.
func (p *Photo) AspectRatio() float64 {
	if p.Height <= 0 {
		return 1
	}
	return float64(p.Width) / float64(p.Height)
}

// PhotoRepository provides CRUD operations for photos.
type PhotoRepository struct {
	db *sql.DB
}

// Photos returns the photo repository for this store.
func (s *Store) Photos() *PhotoRepository {
	return &PhotoRepository{db: s.db}
}

// Create stores a photo and its image bytes.
func (r *PhotoRepository) Create(p *Photo, data []byte) error {
	p.CreatedAt = time.Now()
	p.Size = int64(len(data))

	_, err := r.db.Exec(
		`INSERT INTO photos (id, name, content_type, width, height, size, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ContentType, p.Width, p.Height, p.Size, data, p.CreatedAt,
	)
	return err
}

// GetByID retrieves a photo's metadata by its ID.
func (r *PhotoRepository) GetByID(id string) (*Photo, error) {
	p := &Photo{}

	err := r.db.QueryRow(
		`SELECT id, name, content_type, width, height, size, created_at
		 FROM photos WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Name, &p.ContentType, &p.Width, &p.Height, &p.Size, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return p, nil
}

// Image returns a photo's content type and bytes.
func (r *PhotoRepository) Image(id string) (string, []byte, error) {
	var contentType string
	var data []byte

	err := r.db.QueryRow(`SELECT content_type, data FROM photos WHERE id = ?`, id).Scan(&contentType, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}

	return contentType, data, nil
}

// List retrieves all photos in upload order.
func (r *PhotoRepository) List() ([]*Photo, error) {
	rows, err := r.db.Query(
		`SELECT id, name, content_type, width, height, size, created_at
		 FROM photos ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*Photo
	for rows.Next() {
		p := &Photo{}
		if err := rows.Scan(&p.ID, &p.Name, &p.ContentType, &p.Width, &p.Height, &p.Size, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return photos, nil
}

// Delete removes a photo by its ID.
func (r *PhotoRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
