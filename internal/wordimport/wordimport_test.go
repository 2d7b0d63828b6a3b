package wordimport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/furigana"
)

type recordingExtractor struct {
	text  string
	words []furigana.Word
}

func (r *recordingExtractor) ContentWords(text string) []furigana.Word {
	r.text = text
	return r.words
}

const page = `<!DOCTYPE html>
<html lang="ja"><head><title>図書館の一日</title></head>
<body>
<nav><a href="/">ホーム</a> <a href="/news">ニュース</a></nav>
<article>
<h1>図書館の一日</h1>
<p>朝九時に<ruby>図書館<rp>(</rp><rt>としょかん</rt><rp>)</rp></ruby>の扉が開くと、近所に住む学生や会社員が次々に入ってきて、静かな閲覧室の席はあっという間に埋まってしまいます。</p>
<p>昼になると、親子連れが絵本のコーナーに集まり、司書さんが読み聞かせを始めます。子どもたちは床に座って、楽しそうに物語に耳を傾けています。</p>
<p>夕方には仕事帰りの人たちが新聞や雑誌を読みに来て、閉館の時間まで思い思いに過ごします。図書館は町の人々にとって大切な場所なのです。</p>
</article>
<footer>© 2026 町の図書館</footer>
</body></html>`

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	ex := &recordingExtractor{words: []furigana.Word{
		{Base: "図書館", Reading: "としょかん"},
		{Base: "学生", Reading: "がくせい"},
		{Base: "会社員", Reading: "かいしゃいん"},
	}}
	im := New(ex, srv.Client())

	art, err := im.Import(context.Background(), srv.URL+"/article", 2)
	require.NoError(t, err)
	assert.Contains(t, art.Title, "図書館の一日")
	assert.Len(t, art.Words, 2)
	assert.Equal(t, "図書館", art.Words[0].Base)

	assert.Contains(t, ex.text, "閲覧室")
	assert.NotContains(t, ex.text, "としょかん", "ruby readings must be stripped")
}

func TestImport_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	im := New(&recordingExtractor{}, srv.Client())

	_, err := im.Import(context.Background(), srv.URL, 0)
	assert.ErrorContains(t, err, "status 410")

	_, err = im.Import(context.Background(), "ftp://example.com/file", 0)
	assert.ErrorContains(t, err, "invalid url")
}

func TestImport_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("あ", MaxBodySize/3+1)))
	}))
	defer srv.Close()

	_, err := New(&recordingExtractor{}, srv.Client()).Import(context.Background(), srv.URL, 0)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStripRuby(t *testing.T) {
	in := `<ruby>漢字<rp>(</rp><RT class="r">かんじ</RT><rp>)</rp></ruby>を読む`
	assert.Equal(t, "<ruby>漢字</ruby>を読む", string(StripRuby([]byte(in))))
}
