package service

import (
	"context"

	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/repository"
)

// TeacherService handles teacher account operations.
type TeacherService struct {
	teacherRepo *repository.TeacherRepository
	authSvc     *AuthService
}

func NewTeacherService(teacherRepo *repository.TeacherRepository, authSvc *AuthService) *TeacherService {
	return &TeacherService{teacherRepo: teacherRepo, authSvc: authSvc}
}

func (s *TeacherService) GetByID(ctx context.Context, id int) (*model.Teacher, error) {
	return s.teacherRepo.GetByID(ctx, id)
}

func (s *TeacherService) GetByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	return s.teacherRepo.GetByEmail(ctx, email)
}

// Create registers a new teacher account with a hashed password.
func (s *TeacherService) Create(ctx context.Context, email, name, password string) (*model.Teacher, error) {
	hash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, err
	}

	teacher := &model.Teacher{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.teacherRepo.Create(ctx, teacher); err != nil {
		return nil, err
	}
	return teacher, nil
}
