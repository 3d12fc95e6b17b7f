package security

import (
	"strings"
	"testing"
)

func TestImageURLValidator_ValidateURL_AllowsPublicHTTPS(t *testing.T) {
	v := NewImageURLValidator()

	urls := []string{
		"https://cdn.example.com/products/tumbler.png",
		"http://images.example.com/p/1.jpg",
	}
	for _, u := range urls {
		if err := v.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%s) がエラーを返した: %v", u, err)
		}
	}
}

func TestImageURLValidator_ValidateURL_RejectsUnsafeURLs(t *testing.T) {
	v := NewImageURLValidator()

	tests := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"javascriptスキーム", "javascript:alert(1)"},
		{"dataスキーム", "data:image/png;base64,xxxx"},
		{"ループバックIP", "http://127.0.0.1/image.png"},
		{"プライベートIP", "http://192.168.1.10/image.png"},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data"},
		{"ホストなし", "https:///image.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateURL(tt.url); err == nil {
				t.Errorf("ValidateURL(%s) がエラーを返さなかった", tt.url)
			}
		})
	}
}

func TestImageURLValidator_NewSafeClient_ReturnsNonNil(t *testing.T) {
	v := NewImageURLValidator()
	if v.NewSafeClient(0) == nil {
		t.Fatal("NewSafeClient は nil を返してはならない")
	}
}

func TestDescriptionSanitizer_RemovesScriptTags(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<p>キャンプに最適</p><script>alert('xss')</script>`)
	if strings.Contains(got, "<script>") {
		t.Errorf("scriptタグが除去されていない: %s", got)
	}
	if !strings.Contains(got, "<p>キャンプに最適</p>") {
		t.Errorf("許可タグが残っていない: %s", got)
	}
}

func TestDescriptionSanitizer_RemovesEventAttributes(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<p onclick="steal()">保冷24時間</p>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("イベント属性が除去されていない: %s", got)
	}
}

func TestDescriptionSanitizer_EmptyInput(t *testing.T) {
	s := NewDescriptionSanitizer()
	if got := s.Sanitize(""); got != "" {
		t.Errorf("空入力の結果 = %q, want 空文字列", got)
	}
}

func TestDescriptionSanitizer_Idempotent(t *testing.T) {
	s := NewDescriptionSanitizer()

	input := `<ul><li>容量500ml</li></ul><iframe src="https://evil.example.com"></iframe>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("サニタイズが冪等でない: 1回目 = %q, 2回目 = %q", once, twice)
	}
}
