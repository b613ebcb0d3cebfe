package validator

import "testing"

type cardForm struct {
	Card string `conform:"trim" validate:"required,max=20,cardid"`
	Day  string `conform:"trim" validate:"omitempty,isodate"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    cardForm
		wantErr bool
		card    string
	}{
		{name: "trimmed", form: cardForm{Card: "  AB12  "}, card: "AB12"},
		{name: "placeholder", form: cardForm{Card: "TBD_7", Day: "2024-01-10"}, card: "TBD_7"},
		{name: "empty", form: cardForm{Card: "   "}, wantErr: true},
		{name: "inner space", form: cardForm{Card: "AB 12"}, wantErr: true},
		{name: "bad date", form: cardForm{Card: "AB12", Day: "10/01/2024"}, wantErr: true},
		{name: "too long", form: cardForm{Card: "0123456789012345678901"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.form
			err := Get().Validate(&f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && f.Card != tt.card {
				t.Errorf("card = %q, want %q", f.Card, tt.card)
			}
		})
	}
}
