package models

import "time"

// CategoryKind разделяет категории тренировок и товаров.
type CategoryKind string

const (
	CategoryWorkout CategoryKind = "workout"
	CategoryProduct CategoryKind = "product"
)

// Category — категория каталога.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      CategoryKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// CategoryInput — тело запроса на создание или изменение категории.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=80"`
	Kind string `json:"kind" validate:"required,oneof=workout product"`
}

// WorkoutLevel — уровень сложности тренировки.
type WorkoutLevel string

const (
	LevelBeginner     WorkoutLevel = "beginner"
	LevelIntermediate WorkoutLevel = "intermediate"
	LevelAdvanced     WorkoutLevel = "advanced"
)

// Workout — тренировка из каталога.
type Workout struct {
	ID              string       `json:"id"`
	CategoryID      string       `json:"category_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Level           WorkoutLevel `json:"level"`
	DurationMinutes int          `json:"duration_minutes"`
	CreatedBy       string       `json:"created_by"`
	Published       bool         `json:"published"`
	Exercises       []Exercise   `json:"exercises,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// WorkoutInput — тело запроса на создание или изменение тренировки.
type WorkoutInput struct {
	CategoryID      string `json:"category_id" validate:"required,uuid"`
	Title           string `json:"title" validate:"required,max=160"`
	Description     string `json:"description" validate:"max=4000"`
	Level           string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,lte=600"`
	Published       bool   `json:"published"`
}

// WorkoutFilter — параметры выборки тренировок.
type WorkoutFilter struct {
	CategoryID    string
	Level         WorkoutLevel
	Search        string
	OnlyPublished bool
	Limit         int
	Offset        int
}

// Exercise — упражнение внутри тренировки.
type Exercise struct {
	ID          string `json:"id"`
	WorkoutID   string `json:"workout_id"`
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	Reps        int    `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
	VideoURL    string `json:"video_url"`
	Position    int    `json:"position"`
}

// ExerciseInput — тело запроса на создание или изменение упражнения.
type ExerciseInput struct {
	Name        string `json:"name" validate:"required,max=160"`
	Sets        int    `json:"sets" validate:"gte=0,lte=100"`
	Reps        int    `json:"reps" validate:"gte=0,lte=1000"`
	RestSeconds int    `json:"rest_seconds" validate:"gte=0,lte=3600"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
	Position    int    `json:"position" validate:"gte=0"`
}

// Product — товар магазина.
type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput — тело запроса на создание или изменение товара.
type ProductInput struct {
	CategoryID  string `json:"category_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,max=160"`
	Description string `json:"description" validate:"max=4000"`
	PriceCents  int64  `json:"price_cents" validate:"gt=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Active      bool   `json:"active"`
}
