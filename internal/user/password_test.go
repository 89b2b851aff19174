package user

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// TestHashAndComparePassword はパスワードのハッシュ化と照合のテスト。
func TestHashAndComparePassword(t *testing.T) {
	t.Parallel()

	t.Run("ハッシュ化したパスワードを照合できる", func(t *testing.T) {
		t.Parallel()

		hash, err := hashPassword("Password1", bcrypt.MinCost)
		if err != nil {
			t.Fatalf("ハッシュ化に失敗: %v", err)
		}
		if hash == "Password1" {
			t.Error("ハッシュが平文のままです")
		}

		if err := comparePassword(hash, "Password1"); err != nil {
			t.Errorf("正しいパスワードの照合に失敗: %v", err)
		}
	})

	t.Run("異なるパスワードは照合に失敗する", func(t *testing.T) {
		t.Parallel()

		hash, err := hashPassword("Password1", bcrypt.MinCost)
		if err != nil {
			t.Fatalf("ハッシュ化に失敗: %v", err)
		}

		if err := comparePassword(hash, "WrongPass1"); err == nil {
			t.Error("誤ったパスワードの照合が成功してしまいました")
		}
	})
}

// TestValidatePasswordStrength はパスワード強度検証のテスト。
func TestValidatePasswordStrength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"十分な強度のパスワード", "Password1", false},
		{"記号を含む強いパスワード", "S3cure!Pass", false},
		{"8文字未満", "Pass1ab", true},
		{"大文字なし", "password1", true},
		{"小文字なし", "PASSWORD1", true},
		{"数字なし", "PasswordOnly", true},
		{"空文字", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validatePasswordStrength(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePasswordStrength(%q) = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}
