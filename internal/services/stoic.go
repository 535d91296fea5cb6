package services

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"github.com/tanadol/reelforge/internal/models"
)

// ---------------------------------------------------------------------------
// Stoic content library: curated Thai quotes and narratives per theme.
// Always available: when no LLM provider is configured, motivation videos
// draw scripts from here.
// ---------------------------------------------------------------------------

type stoicTheme struct {
	Theme      string
	Keywords   []string
	Quotes     []string
	Narratives []string
}

var stoicThemes = map[string]stoicTheme{
	"inner_strength": {
		Theme:    "ความแข็งแกร่งจากภายใน",
		Keywords: []string{"แข็งแกร่ง", "จิตใจ", "อุปสรรค", "เอาชนะ"},
		Quotes: []string{
			"ความแข็งแกร่งแท้จริงมาจากการเอาชนะตัวเองในวันที่ไม่อยากทำ",
			"อุปสรรคในเส้นทาง คือ เส้นทาง ไม่ใช่สิ่งขวางทาง",
			"ทุกวันที่คุณไม่ยอมแพ้ คือวันที่คุณชนะแล้ว",
			"จิตใจที่แข็งแกร่งไม่ได้เกิดจากการไม่มีปัญหา แต่เกิดจากการเผชิญหน้ากับปัญหา",
		},
		Narratives: []string{
			`ในชีวิตเรามีสองประเภทของความแข็งแกร่ง
ความแข็งแกร่งของร่างกาย และความแข็งแกร่งของจิตใจ

ร่างกายที่แข็งแรงช่วยให้เราทำงานได้ดี
แต่จิตใจที่แข็งแกร่งช่วยให้เราอยู่รอดได้

ทุกวันที่คุณเลือกลุกขึ้นเมื่อไม่อยากลุก
ทุกครั้งที่คุณเลือกทำเมื่อไม่อยากทำ
คุณกำลังสร้างความแข็งแกร่งที่ไม่มีใครพรากไปได้

อุปสรรคไม่ได้มาขวางทาง อุปสรรคคือทาง
ทุกความยากลำบากคือโอกาสในการเติบโต`,
		},
	},
	"acceptance": {
		Theme:    "การยอมรับในสิ่งที่ควบคุมไม่ได้",
		Keywords: []string{"ยอมรับ", "ควบคุม", "ปล่อยวาง", "ความสงบ"},
		Quotes: []string{
			"สิ่งที่อยู่ในอำนาจเราคือความคิด การกระทำ และการตัดสินใจ",
			"อย่าเสียเวลากับสิ่งที่เปลี่ยนแปลงไม่ได้ จงมุ่งมั่นกับสิ่งที่อยู่ในมือเรา",
			"ความสงบใจเกิดขึ้นเมื่อเรารู้จักแยกแยะสิ่งที่ควบคุมได้และควบคุมไม่ได้",
			"การยอมรับไม่ใช่การยอมแพ้ แต่เป็นการเลือกสู้ในสนามรบที่ชนะได้",
		},
		Narratives: []string{
			`ปรัชญา Stoic สอนเราเรื่องการแบ่งแยก
สิ่งที่เราควบคุมได้ และสิ่งที่เราควบคุมไม่ได้

สิ่งที่เราควบคุมได้คือ ความคิด การกระทำ และการตอบสนองของเรา
สิ่งที่เราควบคุมไม่ได้คือ ผู้คน เหตุการณ์ และผลลัพธ์

ความสงบใจเกิดขึ้นเมื่อเรารู้จักแยกแยะสองสิ่งนี้
และมุ่งมั่นกับสิ่งที่อยู่ในอำนาจของเราเท่านั้น

การยอมรับไม่ใช่การยอมแพ้
แต่เป็นการเลือกใช้พลังงานอย่างชาญฉลาด`,
		},
	},
	"purpose": {
		Theme:    "การใช้ชีวิตอย่างมีจุดหมาย",
		Keywords: []string{"จุดหมาย", "ชีวิต", "คุณค่า", "ความหมาย"},
		Quotes: []string{
			"ชีวิตที่มีความหมายไม่ได้วัดจากความยาว แต่วัดจากความลึก",
			"คุณคือสิ่งที่คุณทำซ้ำๆ ความเป็นเลิศจึงไม่ใช่การกระทำ แต่เป็นนิสัย",
			"ทุกการกระทำเล็กๆ ที่สอดคล้องกับค่านิยมของเรา คือการก้าวสู่ชีวิตที่มีความหมาย",
			"จุดหมายของชีวิตไม่ใช่การมีความสุข แต่เป็นการมีคุณค่า",
		},
		Narratives: []string{
			`ชีวิตที่ยิ่งใหญ่ไม่ได้เกิดจากโชคชาตา
แต่เกิดจากการเลือกที่จะทำสิ่งที่มีความหมาย

ทุกการกระทำเล็กๆ ที่สอดคล้องกับค่านิยมของเรา
ทุกการตัดสินใจที่ยึดหลักการมากกว่าความสะดวก
ก็คือการก้าวเข้าสู่ชีวิตที่มีจุดหมาย

ความสำเร็จไม่ได้วัดจากสิ่งที่เราได้รับ
แต่วัดจากสิ่งที่เราให้

คุณคือสิ่งที่คุณทำซ้ำๆ เลือกอย่างชาญฉลาด`,
		},
	},
	"resilience": {
		Theme:    "การเผชิญหน้ากับความทุกข์",
		Keywords: []string{"ความทุกข์", "เผชิญหน้า", "แก้ไข", "เติบโต"},
		Quotes: []string{
			"ความทุกข์คือครูที่ดีที่สุด มันสอนเราในสิ่งที่ความสุขทำไม่ได้",
			"เมื่อคุณไม่สามารถเปลี่ยนสถานการณ์ได้ คุณต้องเปลี่ยนตัวเอง",
			"ในความยากลำบาก เราค้นพบความแข็งแกร่งที่ไม่เคยรู้ว่ามี",
			"ความทุกข์ไม่ใช่ศัตรู แต่เป็นครูที่มาสอนเราเติบโต",
		},
		Narratives: []string{
			`ความทุกข์ไม่ใช่ศัตรู แต่เป็นครู
มันมาเพื่อสอนเราในสิ่งที่ความสุขสอนไม่ได้

ในความยากลำบาก เราค้นพบความแข็งแกร่งที่ไม่เคยรู้ว่ามี
ในความล้มเหลว เราเรียนรู้บทเรียนที่ประเมินค่าไม่ได้
ในความเจ็บปวด เราพัฒนาความเข้าใจที่ลึกซึ้ง

อย่ากลัวความทุกข์ จงเผชิญหน้ากับมัน
เพราะมันคือประตูสู่การเติบโตที่แท้จริง

ทุกวิกฤตคือโอกาส ทุกปัญหาคือบทเรียน`,
		},
	},
}

// StoicLibrary generates Thai Stoic narration content from the curated
// theme library.
type StoicLibrary struct{}

func NewStoicLibrary() *StoicLibrary {
	return &StoicLibrary{}
}

// Themes returns the available theme slugs, sorted.
func (l *StoicLibrary) Themes() []string {
	out := make([]string, 0, len(stoicThemes))
	for slug := range stoicThemes {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// GenerateStoicContent picks a quote and narrative for the theme and builds
// the voiceover script. An unknown or empty theme selects a random one.
func (l *StoicLibrary) GenerateStoicContent(_ context.Context, theme string) (*models.StoicContent, error) {
	selected, ok := stoicThemes[theme]
	if !ok {
		slugs := l.Themes()
		selected = stoicThemes[slugs[rand.Intn(len(slugs))]]
	}

	quote := selected.Quotes[rand.Intn(len(selected.Quotes))]
	narrative := selected.Narratives[rand.Intn(len(selected.Narratives))]

	return &models.StoicContent{
		Theme:           selected.Theme,
		Quote:           quote,
		Narrative:       narrative,
		VoiceoverScript: BuildVoiceoverScript(narrative, quote),
		Keywords:        selected.Keywords,
		EmotionalTone:   "powerful",
	}, nil
}

// BuildVoiceoverScript assembles a narration script with delivery direction
// markers. Directions are bracketed and stripped before synthesis.
func BuildVoiceoverScript(narrative, quote string) string {
	var b strings.Builder
	b.WriteString("[เสียงลึก มีพลัง เริ่มช้าๆ แล้วเร็วขึ้น]\n\n")
	b.WriteString(strings.TrimSpace(narrative))
	b.WriteString("\n\n[หยุดชั่วครู่ เสียงแน่วแน่]\n\nจำไว้เสมอ...\n\n")
	b.WriteString("[เสียงดังขึ้น เน้นทุกคำ]\n\n")
	b.WriteString("\"" + quote + "\"\n\n")
	b.WriteString("[เงียบครู่หนึ่ง แล้วปิดท้ายด้วยเสียงเบา]\n\n")
	b.WriteString("เวลาที่จะเปลี่ยนแปลงคือตอนนี้\nเริ่มต้นกันเถอะ")
	return b.String()
}

// CleanScriptForTTS strips direction markers and surrounding quote marks so
// the synthesizer never reads stage directions aloud.
func CleanScriptForTTS(script string) string {
	var clean []string
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		if strings.HasPrefix(line, "\"") && strings.HasSuffix(line, "\"") {
			line = strings.Trim(line, "\"")
		}
		clean = append(clean, line)
	}
	out := strings.Join(clean, " ... ")
	out = strings.ReplaceAll(out, "จำไว้เสมอ", "จำไว้เสมอ ... ")
	out = strings.ReplaceAll(out, "เริ่มต้นกันเถอะ", " ... เริ่มต้นกันเถอะ")
	return out
}

// EstimateSpeechDuration approximates spoken length in seconds for a Thai
// narration script, about 0.6 seconds per whitespace-separated token.
func EstimateSpeechDuration(script string) float64 {
	return float64(len(strings.Fields(script))) * 0.6
}
