package model

import "time"

// User mirrors the `users` table. Usernames are stored lowercase and are
// the primary key; the balance is a non-negative amount in whole currency
// units that only the payment processor may debit.
type User struct {
	Username     string    // users.username (lowercase)
	PasswordHash string    // users.password_hash (bcrypt)
	Balance      int64     // users.balance
	CreatedAt    time.Time // users.created_at
}
