package repository

import (
	"database/sql"
	"time"

	"github.com/duespark/duespark-backend/internal/model"
)

// ClientRepositoryInterface defines methods used by the reminder service
type ClientRepositoryInterface interface {
	Create(c *model.Client) error
	GetByID(id, ownerID int64) (*model.Client, error)
	ListByOwner(ownerID int64) ([]*model.Client, error)
}

// ClientRepository is the concrete implementation
type ClientRepository struct {
	DB *sql.DB
}

func (r *ClientRepository) Create(c *model.Client) error {
	c.CreatedAt = time.Now()
	query := `
        INSERT INTO clients (owner_id, name, email, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.OwnerID, c.Name, c.Email, c.CreatedAt).Scan(&c.ID)
}

// GetByID fetches a client by ID, scoped to the owner
func (r *ClientRepository) GetByID(id, ownerID int64) (*model.Client, error) {
	query := `
        SELECT id, owner_id, name, email, created_at
        FROM clients
        WHERE id = $1 AND owner_id = $2
    `
	row := r.DB.QueryRow(query, id, ownerID)

	var c model.Client
	var email sql.NullString
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &email, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	c.Email = email.String
	return &c, nil
}

// ListByOwner fetches all of an owner's clients
func (r *ClientRepository) ListByOwner(ownerID int64) ([]*model.Client, error) {
	query := `
        SELECT id, owner_id, name, email, created_at
        FROM clients
        WHERE owner_id = $1
        ORDER BY name ASC
    `
	rows, err := r.DB.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []*model.Client{}
	for rows.Next() {
		var c model.Client
		var email sql.NullString
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &email, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Email = email.String
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

var _ ClientRepositoryInterface = (*ClientRepository)(nil)
