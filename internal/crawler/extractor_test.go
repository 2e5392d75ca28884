package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const sampleArticleHTML = `<!DOCTYPE html>
<html>
<body>
  <h3 class="tit_ko">한국 청소년의 나트륨 섭취 실태와 건강 영향</h3>
  <h3 class="tit">Sodium intake among Korean adolescents</h3>
  <div class="contents">
    <div class="articleCon">
      <h4 class="link-target">초록</h4>
      <dd>본 연구는 청소년의 나트륨 섭취를 분석하였다.</dd>
      <h4 class="link-target">결론</h4>
      <dd>나트륨 섭취 저감 교육이 필요하다.</dd>
    </div>
  </div>
</body>
</html>`

func TestExtractArticlePrefersKoreanTitle(t *testing.T) {
	article, err := ExtractArticle(docFromHTML(t, sampleArticleHTML))

	require.NoError(t, err)
	assert.Equal(t, "한국 청소년의 나트륨 섭취 실태와 건강 영향", article.Title)
}

func TestExtractArticleBuildsLabeledSections(t *testing.T) {
	article, err := ExtractArticle(docFromHTML(t, sampleArticleHTML))

	require.NoError(t, err)
	assert.Equal(t,
		"[초록]\n본 연구는 청소년의 나트륨 섭취를 분석하였다.\n\n[결론]\n나트륨 섭취 저감 교육이 필요하다.",
		article.Body)
}

func TestExtractArticleFallsBackToEnglishTitle(t *testing.T) {
	html := `<html><body>
  <h3 class="tit_ko">짧음</h3>
  <h3 class="tit">Sodium intake among Korean adolescents</h3>
  <div class="contents"><div class="articleCon">
    <h4 class="link-target">Abstract</h4>
    <dd>Body text.</dd>
  </div></div>
</body></html>`

	article, err := ExtractArticle(docFromHTML(t, html))

	require.NoError(t, err)
	// The two-rune Korean title is too short to qualify.
	assert.Equal(t, "Sodium intake among Korean adolescents", article.Title)
}

func TestExtractArticleNoTitle(t *testing.T) {
	html := `<html><body>
  <div class="contents"><div class="articleCon">
    <h4 class="link-target">Abstract</h4><dd>Body text.</dd>
  </div></div>
</body></html>`

	_, err := ExtractArticle(docFromHTML(t, html))
	assert.ErrorIs(t, err, ErrTitleNotFound)
}

func TestExtractArticleNoBodyContainer(t *testing.T) {
	html := `<html><body>
  <h3 class="tit_ko">충분히 긴 한국어 제목입니다</h3>
</body></html>`

	_, err := ExtractArticle(docFromHTML(t, html))
	assert.ErrorIs(t, err, ErrBodyNotFound)
}

func TestExtractArticleEmptyBody(t *testing.T) {
	// Container exists but holds no header/dd pairs.
	html := `<html><body>
  <h3 class="tit_ko">충분히 긴 한국어 제목입니다</h3>
  <div class="contents"><div class="articleCon"><p>loose text</p></div></div>
</body></html>`

	_, err := ExtractArticle(docFromHTML(t, html))
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestExtractArticleSkipsHeaderWithoutData(t *testing.T) {
	html := `<html><body>
  <h3 class="tit_ko">충분히 긴 한국어 제목입니다</h3>
  <div class="contents"><div class="articleCon">
    <h4 class="link-target">초록</h4>
    <dd>본문입니다.</dd>
    <h4 class="link-target">고아 헤더</h4>
  </div></div>
</body></html>`

	article, err := ExtractArticle(docFromHTML(t, html))

	require.NoError(t, err)
	assert.NotContains(t, article.Body, "고아 헤더")
	assert.Contains(t, article.Body, "[초록]\n본문입니다.")
}
