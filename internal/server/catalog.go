package server

import (
	"fmt"

	"github.com/desertthunder/audx/internal/models"
)

type seedBook struct {
	id       int
	title    string
	narrator string
	author   string
	authorID int
	price    float64
	stars    float64
	minutes  float64
	blurb    string
}

var seedBooks = []seedBook{
	{1, "Pride and Prejudice", "Rosamund Pike", "Jane Austen", 1, 349, 4.6, 11*60 + 35, "Elizabeth Bennet meets the proud Mr. Darcy."},
	{2, "Emma", "Juliet Stevenson", "Jane Austen", 1, 299, 4.2, 16*60 + 20, "A young matchmaker misreads her own heart."},
	{3, "The Time Machine", "Derek Jacobi", "H. G. Wells", 2, 199, 4.0, 3*60 + 28, "A Victorian inventor travels to the year 802,701."},
	{4, "The War of the Worlds", "David Tennant", "H. G. Wells", 2, 249, 4.3, 6*60 + 25, "Martians land in Surrey."},
	{5, "Great Expectations", "Simon Vance", "Charles Dickens", 3, 399, 4.4, 18*60 + 30, "Pip rises from the marshes to London society."},
	{6, "A Christmas Carol", "Tim Curry", "Charles Dickens", 3, 149, 4.8, 3*60 + 5, "Three spirits visit Ebenezer Scrooge."},
	{7, "Meditations", "Duncan Steen", "Marcus Aurelius", 4, 179, 4.5, 4*60 + 40, "Private notes of a Roman emperor."},
}

// DefaultCatalog returns the sandbox's demo catalog. Audio paths are relative to the sandbox host.
func DefaultCatalog() []models.Audiobook {
	books := make([]models.Audiobook, 0, len(seedBooks))
	for _, s := range seedBooks {
		author, authorID := s.author, s.authorID
		file := fmt.Sprintf("/media/%d.mp3", s.id)
		clip := fmt.Sprintf("/media/%d.mp3", s.id)
		duration := s.minutes * 60
		books = append(books, models.Audiobook{
			AudioID:     s.id,
			Title:       s.title,
			Narrator:    s.narrator,
			Description: s.blurb,
			Price:       s.price,
			TotalStar:   s.stars,
			AuthorID:    &authorID,
			AuthorName:  &author,
			AudioFile:   &file,
			ShortClip:   &clip,
			Duration:    &duration,
		})
	}
	return books
}
