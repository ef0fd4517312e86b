package lang

import "testing"

func TestIsPrimarilyChinese(t *testing.T) {
	t.Parallel()

	if !IsPrimarilyChinese("你好世界，这是一段中文") {
		t.Error("expected Chinese text to be detected as primarily Chinese")
	}
	if IsPrimarilyChinese("Hello world, this is English") {
		t.Error("expected English text to not be primarily Chinese")
	}
	if IsPrimarilyChinese("") {
		t.Error("expected empty string to not be primarily Chinese")
	}
}

func TestIsPrimarilyEnglish(t *testing.T) {
	t.Parallel()

	if !IsPrimarilyEnglish("Write a function that adds two numbers") {
		t.Error("expected English text to be detected as primarily English")
	}
	if IsPrimarilyEnglish("你好") {
		t.Error("expected Chinese text to not be primarily English")
	}
}

func TestDetectPrimaryLanguage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want Language
	}{
		{"", Unknown},
		{"你好世界这是一段纯中文内容", Chinese},
		{"This is plain English prose for detection", English},
		{"你好1234567890 hello1234567890", Mixed},
		{"123456 !!! ...", Unknown},
	}

	for _, tc := range cases {
		got := DetectPrimaryLanguage(tc.text)
		if got != tc.want {
			t.Errorf("DetectPrimaryLanguage(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
