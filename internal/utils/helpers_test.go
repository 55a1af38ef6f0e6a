package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadTermsFromFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"普通文件", "cats\ndogs\n", []string{"cats", "dogs"}, false},
		{"注释和空行", "# 宠物\n\ncats\n  dogs  \n", []string{"cats", "dogs"}, false},
		{"重复关键词", "cats\ncats\ndogs\n", []string{"cats", "dogs"}, false},
		{"只有注释", "# nothing\n", nil, true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, string(rune('a'+i))+".txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			got, err := ReadTermsFromFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadTermsFromFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ReadTermsFromFile() = %v, want %v", got, tt.want)
			}
			for j := range got {
				if got[j] != tt.want[j] {
					t.Errorf("第%d项 = %q, want %q", j, got[j], tt.want[j])
				}
			}
		})
	}

	if _, err := ReadTermsFromFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("文件不存在时应报错")
	}
}

func TestNormalizeChannelURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"频道ID", "https://www.youtube.com/channel/UCqq27nknJ3fe5IvrAbfuEwQ", "https://www.youtube.com/channel/UCqq27nknJ3fe5IvrAbfuEwQ", false},
		{"末尾斜杠", "https://www.youtube.com/@pets/", "https://www.youtube.com/@pets", false},
		{"视频标签页", "https://www.youtube.com/@pets/videos", "https://www.youtube.com/@pets", false},
		{"带查询参数", "https://www.youtube.com/@pets?view=0", "https://www.youtube.com/@pets", false},
		{"缺少协议", "www.youtube.com/@pets", "", true},
		{"缺少路径", "https://www.youtube.com/", "", true},
		{"FTP协议", "ftp://www.youtube.com/@pets", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeChannelURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeChannelURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeChannelURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
