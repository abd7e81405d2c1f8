package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

const (
	cbStartQuiz  = "start_quiz"
	cbResume     = "resume"
	cbHighscore  = "highscore"
	cbBackToMenu = "back_to_menu"
	cbConfirm    = "confirm"
	cbNext       = "next"
	cbExit       = "exit_quiz"
	cbCategory   = "cat_"
	cbDifficulty = "diff_"
	cbOption     = "opt_"
)

var buttonLabels = map[string]string{
	service.LabelConfirm: "✔️ Confirm",
	service.LabelNext:    "➡️ Next",
	service.LabelFinish:  "🏁 Finish",
}

func mainMenu(highscore int, canResume bool) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("📋 *Main menu*\n\n🏆 Highscore: %d", highscore)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Start quiz", cbStartQuiz),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Highscore", cbHighscore),
		),
	}
	if canResume {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Resume last quiz", cbResume),
		))
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoryKeyboard(categories []service.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, fmt.Sprintf("%s%d", cbCategory, c.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back", cbBackToMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func difficultyKeyboard() tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, d := range service.AllDifficulties() {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(string(d), cbDifficulty+string(d)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(buttons...),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", cbBackToMenu)),
	)
}

// questionScreen renders the question, or its solution once answered.
func questionScreen(sel service.Selection, v service.View, selected service.Option) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder

	fmt.Fprintf(&b, "❓ *Question %d/%d*   Score: %d\n", v.Number, v.Total, v.Score)
	fmt.Fprintf(&b, "Category: %s · Level: %s\n", sel.CategoryName, sel.Difficulty)

	clock := "⏱"
	if v.Urgent() {
		clock = "🔴"
	}
	fmt.Fprintf(&b, "%s %s\n\n", clock, v.Countdown())

	if v.Reveal != nil {
		b.WriteString(revealLine(*v.Reveal))
	} else {
		b.WriteString(v.Question.Text)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, text := range v.Question.Options() {
		o := service.Option(i + 1)
		label := text
		switch {
		case v.Reveal != nil && v.Reveal.Verdict(o):
			label = "✅ " + text
		case v.Reveal != nil:
			label = "❌ " + text
		case o == selected:
			label = "● " + text
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbOption, o)),
		))
	}

	control := cbConfirm
	if v.Reveal != nil {
		control = cbNext
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(buttonLabels[v.Label], control),
		tgbotapi.NewInlineKeyboardButtonData("🚪 Exit", cbExit),
	))

	return b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func revealLine(r service.Reveal) string {
	var head string
	switch {
	case r.TimedOut:
		head = "⌛ *Time is up!*"
	case r.Correct:
		head = "✅ *Correct!*"
	case r.Selected == service.OptionNone:
		head = "📖 *Solution*"
	default:
		head = "❌ *Wrong!*"
	}
	return fmt.Sprintf("%s\nAnswer %d is correct: %s", head, r.Question.Answer, r.Question.OptionText(r.Question.Answer))
}

func resultText(out service.Outcome, rec service.Record) string {
	var b strings.Builder
	if out.Status == service.OutcomeAborted {
		b.WriteString("🚪 *Quiz ended early*\n\n")
	} else {
		b.WriteString("🏁 *Quiz finished!*\n\n")
	}
	fmt.Fprintf(&b, "📊 Score: %d/%d\n", out.Score, out.Total)
	fmt.Fprintf(&b, "🏆 Highscore: %d\n", rec.Highscore)
	if rec.NewBest {
		b.WriteString("\n🎉 *New highscore!*")
	}
	return b.String()
}

func resultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Play again", cbStartQuiz),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Menu", cbBackToMenu),
		),
	)
}
