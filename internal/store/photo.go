package store

import (
	"database/sql"
	"errors"
	"time"
)

// Photo is one gallery entry. Its index in the scene is its place in List.
// The image itself lives at URL and is never read by the service.
type Photo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// PhotoRepository provides CRUD operations for photos.
type PhotoRepository struct {
	db *sql.DB
}

// Photos returns the photo repository for this store.
func (s *Store) Photos() *PhotoRepository {
	return &PhotoRepository{db: s.db}
}

// Create appends a photo at the end of the list. Position and CreatedAt are
// assigned here.
func (r *PhotoRepository) Create(p *Photo) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position) + 1, 0) FROM photos`).Scan(&next); err != nil {
		return err
	}

	p.Position = next
	p.CreatedAt = time.Now()

	if _, err := tx.Exec(
		`INSERT INTO photos (id, name, url, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.URL, p.Position, p.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a photo by its ID.
func (r *PhotoRepository) GetByID(id string) (*Photo, error) {
	p := &Photo{}
	err := r.db.QueryRow(
		`SELECT id, name, url, position, created_at FROM photos WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Name, &p.URL, &p.Position, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns all photos in gallery order.
func (r *PhotoRepository) List() ([]*Photo, error) {
	rows, err := r.db.Query(
		`SELECT id, name, url, position, created_at FROM photos ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*Photo
	for rows.Next() {
		p := &Photo{}
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.Position, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}

	return photos, rows.Err()
}

// Delete removes a photo and closes the gap in positions. It returns the
// index the photo had in List.
func (r *PhotoRepository) Delete(id string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRow(`SELECT position FROM photos WHERE id = ?`, id).Scan(&position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if _, err := tx.Exec(`DELETE FROM photos WHERE id = ?`, id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`UPDATE photos SET position = position - 1 WHERE position > ?`, position); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return position, nil
}

// Count returns the number of photos.
func (r *PhotoRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&n)
	return n, err
}
