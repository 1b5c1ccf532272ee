package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Entities
	}{
		{name: "empty", text: "", want: Entities{}},
		{name: "no match", text: "hello there", want: Entities{}},
		{
			name: "amount and date",
			text: "I want to pay my fee of 5000 on 12/03/2024",
			want: Entities{EntityAmount: "5000", EntityDate: "12/03/2024"},
		},
		{name: "thousands separator", text: "I paid 25,000.50 yesterday", want: Entities{EntityAmount: "25,000.50"}},
		{name: "dash date, 2 digit year", text: "exam on 1-2-24", want: Entities{EntityDate: "1-2-24"}},
		{name: "no calendar validation", text: "due 45/19/2024", want: Entities{EntityDate: "45/19/2024"}},
		{
			name: "course canonical name",
			text: "grades for computer science please",
			want: Entities{EntityCourse: "Computer Science"},
		},
		{name: "first course in list wins", text: "nursing or accounting", want: Entities{EntityCourse: "Accounting"}},
		{name: "student id as typed", text: "balance for st12345", want: Entities{EntityStudentID: "st12345"}},
		{name: "student id too short", text: "ST12", want: Entities{}},
		{name: "student id too long", text: "ST1234567", want: Entities{}},
		{
			name: "everything",
			text: "ST00123 paid KES 1,500 for Nursing on 03-04-2025",
			want: Entities{
				EntityStudentID: "ST00123",
				EntityAmount:    "1,500",
				EntityCourse:    "Nursing",
				EntityDate:      "03-04-2025",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEntities(tt.text))
		})
	}
}

func TestExtractEntities_neverPanics(t *testing.T) {
	inputs := []string{"", " ", "\x00\xff", "////----", "1,2,3,4,5", "ST", "99/99/99999", "🙂 fee 🙂"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _ = ExtractEntities(in) }, "input %q", in)
	}
}
