package profile

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the developer profile document. One per user, keyed by User.
type Profile struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	User           primitive.ObjectID `json:"user" bson:"user"`
	Company        string             `json:"company,omitempty" bson:"company,omitempty"`
	Website        string             `json:"website" bson:"website"`
	Location       string             `json:"location,omitempty" bson:"location,omitempty"`
	Status         string             `json:"status" bson:"status"`
	Skills         []string           `json:"skills" bson:"skills"`
	Bio            string             `json:"bio,omitempty" bson:"bio,omitempty"`
	GitHubUsername string             `json:"githubusername,omitempty" bson:"githubusername,omitempty"`
	Social         Social             `json:"social" bson:"social"`
	Experience     []Experience       `json:"experience" bson:"experience"`
	Education      []Education        `json:"education" bson:"education"`
	Date           time.Time          `json:"date" bson:"date"`
}

// Social holds normalized links per platform; unset platforms are omitted.
type Social struct {
	YouTube   string `json:"youtube,omitempty" bson:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty" bson:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty" bson:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty" bson:"instagram,omitempty"`
}

type Experience struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	Company     string             `json:"company" bson:"company"`
	Location    string             `json:"location,omitempty" bson:"location,omitempty"`
	From        time.Time          `json:"from" bson:"from"`
	To          *time.Time         `json:"to,omitempty" bson:"to,omitempty"`
	Current     bool               `json:"current" bson:"current"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
}

type Education struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	School       string             `json:"school" bson:"school"`
	Degree       string             `json:"degree" bson:"degree"`
	FieldOfStudy string             `json:"fieldofstudy" bson:"fieldofstudy"`
	From         time.Time          `json:"from" bson:"from"`
	To           *time.Time         `json:"to,omitempty" bson:"to,omitempty"`
	Current      bool               `json:"current" bson:"current"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
}

// Fields is the normalized content of a create-or-update request.
// Nil optional fields leave the stored value untouched.
type Fields struct {
	Status         string
	Skills         []string
	Website        string
	Social         Social
	Company        *string
	Location       *string
	Bio            *string
	GitHubUsername *string
}

// UserRef is the subset of the owning user embedded in responses.
type UserRef struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Avatar string             `json:"avatar"`
}

// View is a profile with its user reference populated. User is nil when
// the owning user no longer exists.
type View struct {
	Profile
	User *UserRef `json:"user"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Skills = append([]string(nil), p.Skills...)
	cp.Experience = make([]Experience, len(p.Experience))
	for i, e := range p.Experience {
		cp.Experience[i] = e
		if e.To != nil {
			to := *e.To
			cp.Experience[i].To = &to
		}
	}
	cp.Education = make([]Education, len(p.Education))
	for i, e := range p.Education {
		cp.Education[i] = e
		if e.To != nil {
			to := *e.To
			cp.Education[i].To = &to
		}
	}
	return &cp
}
