package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

type Type string

// Course types
const (
	TypeCore     Type = "Core"
	TypeElective Type = "Elective"
	TypeLab      Type = "Lab"
	TypeProject  Type = "Project"
)

var AllTypes = []string{string(TypeCore), string(TypeElective), string(TypeLab), string(TypeProject)}

type (
	// Slot is one weekly meeting of a course.
	Slot struct {
		Day      string `json:"day" validate:"required,oneof=Mon Tue Wed Thu Fri Sat Sun"`
		Start    string `json:"start" validate:"required,datetime=15:04"`
		End      string `json:"end" validate:"required,datetime=15:04"`
		Location string `json:"location"`
	}

	Seats struct {
		Total     int `json:"total"`
		Available int `json:"available"`
	}

	Course struct {
		ID            string    `json:"id"`
		Code          string    `json:"code"`
		Name          string    `json:"name"`
		Credits       int       `json:"credits"`
		Type          Type      `json:"type"`
		Seats         Seats     `json:"seats"`
		Schedule      []Slot    `json:"schedule"`
		Prerequisites []string  `json:"prerequisites"`
		Faculty       string    `json:"faculty"`
		CreatedAt     time.Time `json:"created_at"` // UTC
	}

	// AvailableCourse is a catalog course the student is not enrolled in.
	AvailableCourse struct {
		Course
		Full bool `json:"full"`
	}

	// EnrolledCourse is a course the student holds a seat in.
	EnrolledCourse struct {
		Course
		EnrolledAt time.Time `json:"enrolled_at"` // UTC
	}
)

func (c Course) IsFull() bool {
	return c.Seats.Available <= 0
}

func (c Course) MeetsOn(day string) bool {
	for _, slot := range c.Schedule {
		if slot.Day == day {
			return true
		}
	}
	return false
}

func NewAvailableCourse(c Course) AvailableCourse {
	return AvailableCourse{Course: c, Full: c.IsFull()}
}

type NewCourse struct {
	Code          string   `json:"code" validate:"required,coursecode"`
	Name          string   `json:"name" validate:"required,notblank,max=128"`
	Credits       int      `json:"credits" validate:"required,min=1,max=12"`
	Type          string   `json:"type" validate:"required,coursetype"`
	Seats         int      `json:"seats" validate:"min=0"`
	Schedule      []Slot   `json:"schedule" validate:"omitempty,dive"`
	Prerequisites []string `json:"prerequisites" validate:"omitempty,dive,coursecode"`
	Faculty       string   `json:"faculty"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CourseCode(nc.Code)
	nc.Name = core.CleanName(nc.Name)
	nc.Faculty = core.CleanName(nc.Faculty)
	for i, p := range nc.Prerequisites {
		nc.Prerequisites[i] = core.CourseCode(p)
	}
	return validate.Struct(nc)
}
