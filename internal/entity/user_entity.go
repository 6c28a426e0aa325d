package entity

import "time"

type User struct {
	Id        string    `bson:"_id" json:"id"`
	Username  string    `bson:"username" json:"username"`
	Email     string    `bson:"email" json:"email"`
	Password  string    `bson:"password" json:"-"` // Don't expose password in JSON
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in
// conversation views and search results.
type UserSummary struct {
	Id       string `bson:"_id" json:"id"`
	Username string `bson:"username" json:"username"`
	Name     string `bson:"name" json:"name"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		Id:       u.Id,
		Username: u.Username,
		Name:     u.Name,
	}
}

type UserIndexFilter struct {
	Ids []string `bson:"ids"`
}
