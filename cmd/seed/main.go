// Command seed fills the database with fake users and profiles for local
// development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/devconnector/devconnector/backend/go-services/internal/config"
	"github.com/devconnector/devconnector/backend/go-services/internal/database"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/repository"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/service"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/logger"
)

func main() {
	n := flag.Int("n", 20, "number of users to create")
	password := flag.String("password", "password123", "password for every seeded user")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required for seeding")
	}

	ctx := context.Background()
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 3)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.MongoDB.Database)

	userRepo, err := users.NewMongoUserRepository(ctx, db.Collection("users"))
	if err != nil {
		logger.Fatalf("users collection: %v", err)
	}
	profileRepo, err := repository.NewMongoRepo(ctx, db.Collection("profiles"))
	if err != nil {
		logger.Fatalf("profiles collection: %v", err)
	}
	userSvc := users.NewService(userRepo)
	profileSvc := service.New(profileRepo, userSvc)

	created, err := run(ctx, gofakeit.New(*seed), userSvc, profileSvc, *n, *password)
	if err != nil {
		logger.Fatalf("seed failed after %d users: %v", created, err)
	}
	logger.Infof("seeded %d users with profiles (password %q)", created, *password)
}

// run creates n users, each with a profile, some experience and education.
func run(ctx context.Context, f *gofakeit.Faker, userSvc *users.Service, profileSvc service.Service, n int, password string) (int, error) {
	for i := 0; i < n; i++ {
		name := f.Name()
		email := fmt.Sprintf("%s.%d@example.com", strings.ToLower(f.Username()), i)
		u, err := userSvc.Register(ctx, name, email, password)
		if err != nil {
			return i, fmt.Errorf("register %s: %w", email, err)
		}

		skills := make([]string, 0, 4)
		for j := f.Number(2, 4); j > 0; j-- {
			skills = append(skills, f.ProgrammingLanguage())
		}
		rawSkills, _ := json.Marshal(strings.Join(skills, ", "))
		company, location, bio := f.Company(), f.City(), f.Sentence(12)
		handle := strings.ToLower(f.Username())
		in := service.ProfileInput{
			Status:         f.RandomString([]string{"Developer", "Junior Developer", "Senior Developer", "Manager", "Student", "Instructor"}),
			Skills:         rawSkills,
			Company:        &company,
			Location:       &location,
			Bio:            &bio,
			GitHubUsername: &handle,
			Website:        f.DomainName(),
			Twitter:        "twitter.com/" + handle,
			LinkedIn:       "linkedin.com/in/" + handle,
		}
		if _, err := profileSvc.CreateOrUpdateProfile(ctx, u.ID, in); err != nil {
			return i, fmt.Errorf("profile for %s: %w", email, err)
		}

		start := f.DateRange(time.Now().AddDate(-12, 0, 0), time.Now().AddDate(-2, 0, 0))
		for j := f.Number(1, 3); j > 0; j-- {
			end := start.AddDate(0, f.Number(6, 36), 0)
			exp := service.ExperienceInput{
				Title:       f.JobTitle(),
				Company:     f.Company(),
				Location:    f.City(),
				From:        start.Format("2006-01-02"),
				Description: f.Sentence(10),
			}
			if end.Before(time.Now()) {
				exp.To = end.Format("2006-01-02")
			} else {
				exp.Current = true
			}
			if _, err := profileSvc.AddExperience(ctx, u.ID, exp); err != nil {
				return i, fmt.Errorf("experience for %s: %w", email, err)
			}
			start = end
		}

		from := f.DateRange(time.Now().AddDate(-20, 0, 0), time.Now().AddDate(-14, 0, 0))
		edu := service.EducationInput{
			School:       f.Company() + " University",
			Degree:       f.RandomString([]string{"BSc", "BA", "MSc", "PhD", "Bootcamp"}),
			FieldOfStudy: f.RandomString([]string{"Computer Science", "Mathematics", "Physics", "Design"}),
			From:         from.Format("2006-01-02"),
			To:           from.AddDate(4, 0, 0).Format("2006-01-02"),
		}
		if _, err := profileSvc.AddEducation(ctx, u.ID, edu); err != nil {
			return i, fmt.Errorf("education for %s: %w", email, err)
		}
	}
	return n, nil
}
