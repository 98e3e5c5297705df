// Package models содержит доменные структуры статей библиотеки контента,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Post представляет статью библиотеки контента.
// Поле IsPremium определяет, отдаётся ли полный текст только подписчикам.
type Post struct {
	ID        string // Уникальный идентификатор статьи
	Title     string // Заголовок
	Slug      string // URL-слаг, уникальный
	Excerpt   string // Краткое описание для списков и SEO
	Content   string // Полный текст статьи
	IsPremium bool   // Признак платного контента
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostView представляет статью в HTTP-ответе. Поле Content содержит либо
// полный текст, либо усечённое превью в зависимости от прав читателя.
type PostView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	IsPremium bool   `json:"is_premium"`
	IsPreview bool   `json:"is_preview"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// DummyPost используется для приёма данных статьи из JSON-запроса.
type DummyPost struct {
	Title     string `json:"title" validate:"required,min=3,max=200"` // Заголовок статьи
	Excerpt   string `json:"excerpt" validate:"required"`             // Краткое описание
	Content   string `json:"content" validate:"required"`             // Полный текст
	IsPremium *bool  `json:"is_premium"`                              // По умолчанию true
}
