package service

import (
	"context"

	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/repository"
)

// StudentService handles student account business logic.
type StudentService struct {
	studentRepo *repository.StudentRepository
	authSvc     *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, authSvc *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, authSvc: authSvc}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// GetByUsername retrieves a student by their username.
func (s *StudentService) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	return s.studentRepo.GetByUsername(ctx, username)
}

// Register creates a student account with a hashed password.
func (s *StudentService) Register(ctx context.Context, username, name, password string) (*model.Student, error) {
	hash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, err
	}
	student := &model.Student{
		Username:     username,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// ChangePassword updates a student's password.
func (s *StudentService) ChangePassword(ctx context.Context, id int, newPassword string) error {
	hash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.studentRepo.UpdatePassword(ctx, id, hash)
}
