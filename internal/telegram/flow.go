package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"petfoodverifai/internal/analyzeform"
	"petfoodverifai/internal/backend"
	"petfoodverifai/internal/submission"
)

// Sender delivers messages to Telegram. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TokenIssuer mints API tokens for chat users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// DraftStore persists per-chat drafts.
type DraftStore interface {
	Save(ctx context.Context, chatID int64, d *Draft) error
	GetActive(ctx context.Context, chatID int64, now time.Time) (*Draft, error)
	Delete(ctx context.Context, chatID int64) error
}

const (
	msgHelp = "I check whether a pet food suits your pet.\n\n" +
		"/analyze - start a new analysis\n" +
		"/cancel - discard the current analysis"
	msgNoDraft       = "Send /analyze to start a new analysis."
	msgCancelled     = "Analysis cancelled."
	msgBusy          = "Still working on your previous request. Please wait."
	msgAskName       = "What is the product name?"
	msgAskURL        = "Send the product page URL."
	msgAskSpecies    = "Is it for a Cat or a Dog?"
	msgAskBreed      = "What breed is your pet?"
	msgAskAge        = "How old is your pet, in whole years?"
	msgAskInfo       = "Anything else we should know (allergies, health issues)? Send /skip if not."
	msgAskIngredient = "Paste the ingredient list from the package, or send /none if the product has no ingredient list."
	msgAskRetry      = "Send /retry to try again or /cancel to give up."
	msgLoginAgain    = "Send /analyze to start again."
	msgStartOver     = "Send /analyze to start over."
)

var prompts = map[Step]string{
	StepProductName:    msgAskName,
	StepProductURL:     msgAskURL,
	StepSpecies:        msgAskSpecies,
	StepBreed:          msgAskBreed,
	StepAge:            msgAskAge,
	StepAdditionalInfo: msgAskInfo,
	StepIngredients:    msgAskIngredient,
	StepRetry:          msgAskRetry,
}

// next is the question that follows each text step.
var next = map[Step]Step{
	StepProductName: StepProductURL,
	StepProductURL:  StepSpecies,
	StepSpecies:     StepBreed,
	StepBreed:       StepAge,
	StepAge:         StepAdditionalInfo,
}

var stepFields = map[Step]analyzeform.Field{
	StepProductName:    analyzeform.FieldProductName,
	StepProductURL:     analyzeform.FieldProductURL,
	StepSpecies:        analyzeform.FieldSpecies,
	StepBreed:          analyzeform.FieldBreed,
	StepAge:            analyzeform.FieldAge,
	StepAdditionalInfo: analyzeform.FieldAdditionalInfo,
}

// fieldOrder maps form fields back to the step that asks for them.
var fieldOrder = []struct {
	field analyzeform.Field
	step  Step
}{
	{analyzeform.FieldProductName, StepProductName},
	{analyzeform.FieldProductURL, StepProductURL},
	{analyzeform.FieldSpecies, StepSpecies},
	{analyzeform.FieldBreed, StepBreed},
	{analyzeform.FieldAge, StepAge},
	{analyzeform.FieldIngredientsText, StepIngredients},
}

// Flow walks a chat through the analyze form, one question per message.
type Flow struct {
	sender    Sender
	drafts    DraftStore
	backend   submission.Backend
	issuer    TokenIssuer
	scheduler submission.Scheduler
	logger    *zap.Logger
	now       func() time.Time

	locks sync.Map // chat ID -> *sync.Mutex
}

// NewFlow creates a Flow. A nil scheduler uses real timers.
func NewFlow(sender Sender, drafts DraftStore, b submission.Backend, issuer TokenIssuer, scheduler submission.Scheduler, logger *zap.Logger) *Flow {
	if scheduler == nil {
		scheduler = submission.RealScheduler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		sender:    sender,
		drafts:    drafts,
		backend:   b,
		issuer:    issuer,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle processes one message of userID in chatID. Messages of the same
// chat are handled one at a time; a message arriving while the previous one
// is still running is answered with a busy notice.
func (f *Flow) Handle(ctx context.Context, chatID, userID int64, text string) {
	mu, _ := f.locks.LoadOrStore(chatID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	if !lock.TryLock() {
		f.reply(chatID, msgBusy)
		return
	}
	defer lock.Unlock()

	if err := f.handle(ctx, chatID, userID, strings.TrimSpace(text)); err != nil {
		f.logger.Error("failed to handle message", zap.Int64("chat_id", chatID), zap.Error(err))
		f.reply(chatID, "Something went wrong. Please try again.")
	}
}

func (f *Flow) handle(ctx context.Context, chatID, userID int64, text string) error {
	switch command(text) {
	case "start", "help":
		f.reply(chatID, msgHelp)
		return nil
	case "analyze":
		d := &Draft{Step: StepProductName, Values: analyzeform.DefaultValues(), ScrapeState: analyzeform.ScrapeIdle}
		if err := f.drafts.Save(ctx, chatID, d); err != nil {
			return err
		}
		f.ask(chatID, d.Step)
		return nil
	case "cancel":
		if err := f.drafts.Delete(ctx, chatID); err != nil {
			return err
		}
		f.send(removeKeyboard(tgbotapi.NewMessage(chatID, msgCancelled)))
		return nil
	}

	d, err := f.drafts.GetActive(ctx, chatID, f.now())
	if err != nil {
		return err
	}
	if d == nil {
		f.reply(chatID, msgNoDraft)
		return nil
	}

	form := analyzeform.New(d.Values)
	form.SetScrapeState(d.ScrapeState)

	switch d.Step {
	case StepSpecies:
		species := analyzeform.SpeciesUnset
		switch strings.ToLower(text) {
		case "cat":
			species = analyzeform.SpeciesCat
		case "dog":
			species = analyzeform.SpeciesDog
		}
		if !f.answer(chatID, form, analyzeform.FieldSpecies, string(species)) {
			return f.save(ctx, chatID, d, form)
		}
		d.Step = next[d.Step]

	case StepProductName, StepProductURL, StepBreed, StepAge:
		field := stepFields[d.Step]
		if !f.answer(chatID, form, field, text) {
			return f.save(ctx, chatID, d, form)
		}
		if d.Step == StepAge {
			if notice := form.AgeWarning(); notice != "" {
				f.reply(chatID, notice)
			}
		}
		d.Step = next[d.Step]

	case StepAdditionalInfo:
		info := text
		if command(text) == "skip" {
			info = ""
		}
		if err := form.UpdateField(analyzeform.FieldAdditionalInfo, info); err != nil {
			return err
		}
		return f.submit(ctx, chatID, userID, d, form)

	case StepIngredients:
		if command(text) == "none" {
			form.ToggleNoIngredients(true)
		} else {
			form.ToggleNoIngredients(false)
			form.UpdateManualIngredients(text)
			if err := form.HandleBlur(analyzeform.FieldIngredientsText); err != nil {
				return err
			}
			if msg := form.Errors()[analyzeform.FieldIngredientsText]; msg != "" {
				f.reply(chatID, msg)
				return f.save(ctx, chatID, d, form)
			}
		}
		return f.submit(ctx, chatID, userID, d, form)

	case StepRetry:
		if command(text) != "retry" {
			f.ask(chatID, d.Step)
			return nil
		}
		return f.submit(ctx, chatID, userID, d, form)
	}

	if err := f.save(ctx, chatID, d, form); err != nil {
		return err
	}
	f.ask(chatID, d.Step)
	return nil
}

// answer sets a field from the user's reply and blurs it. On a validation
// error it repeats the message and reports false.
func (f *Flow) answer(chatID int64, form *analyzeform.Form, field analyzeform.Field, value string) bool {
	if err := form.UpdateField(field, value); err != nil {
		f.logger.Error("unexpected form field", zap.String("field", string(field)), zap.Error(err))
		return false
	}
	if err := form.HandleBlur(field); err != nil {
		f.logger.Error("unexpected form field", zap.String("field", string(field)), zap.Error(err))
		return false
	}
	if msg := form.Errors()[field]; msg != "" {
		f.reply(chatID, msg)
		return false
	}
	return true
}

func (f *Flow) submit(ctx context.Context, chatID, userID int64, d *Draft, form *analyzeform.Form) error {
	status := submission.MsgScraping
	if form.Values().HasManualIngredients {
		status = submission.MsgSubmitting
	}
	f.send(removeKeyboard(tgbotapi.NewMessage(chatID, status)))

	nav := &chatNavigator{flow: f, chatID: chatID}
	orch := submission.New(form, f.backend, nav, &chatSession{issuer: f.issuer, userID: userID, logger: f.logger}, f.scheduler, f.logger)
	nav.orch = orch

	outcome, err := orch.Submit(ctx)
	if err != nil {
		return err
	}

	switch outcome {
	case submission.OutcomeSucceeded:
		return f.drafts.Delete(ctx, chatID)

	case submission.OutcomeUnauthorized:
		f.reply(chatID, orch.Alert())
		return f.drafts.Delete(ctx, chatID)

	case submission.OutcomeNeedsManualIngredients:
		f.reply(chatID, orch.Alert())
		form.EnableManualIngredients()
		d.Step = StepIngredients

	case submission.OutcomeInvalid, submission.OutcomeServerValidation:
		step, ok := firstInvalidStep(form.Errors())
		if !ok {
			f.reply(chatID, orch.Alert())
			f.reply(chatID, msgStartOver)
			return f.drafts.Delete(ctx, chatID)
		}
		f.reply(chatID, formatErrors(form.Errors()))
		d.Step = step

	case submission.OutcomeFailed:
		f.reply(chatID, orch.Alert())
		d.Step = StepRetry
	}

	if err := f.save(ctx, chatID, d, form); err != nil {
		return err
	}
	f.ask(chatID, d.Step)
	return nil
}

func (f *Flow) save(ctx context.Context, chatID int64, d *Draft, form *analyzeform.Form) error {
	d.Values = form.Values()
	d.ScrapeState = form.ScrapeState()
	return f.drafts.Save(ctx, chatID, d)
}

func (f *Flow) ask(chatID int64, step Step) {
	msg := tgbotapi.NewMessage(chatID, prompts[step])
	switch step {
	case StepSpecies:
		msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Cat"),
			tgbotapi.NewKeyboardButton("Dog"),
		))
	default:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	f.send(msg)
}

func (f *Flow) reply(chatID int64, text string) {
	f.send(tgbotapi.NewMessage(chatID, text))
}

func (f *Flow) send(msg tgbotapi.MessageConfig) {
	if _, err := f.sender.Send(msg); err != nil {
		f.logger.Warn("failed to send telegram message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func removeKeyboard(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	return msg
}

// command returns the bot command in text without the slash or @botname, or "".
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func firstInvalidStep(errs analyzeform.Errors) (Step, bool) {
	for _, fo := range fieldOrder {
		if _, ok := errs[fo.field]; ok {
			return fo.step, true
		}
	}
	return "", false
}

func formatErrors(errs analyzeform.Errors) string {
	var sb strings.Builder
	sb.WriteString("Please fix the following:")
	for _, fo := range fieldOrder {
		if msg, ok := errs[fo.field]; ok {
			sb.WriteString("\n• " + msg)
		}
	}
	return sb.String()
}

// chatNavigator turns orchestrator navigation into chat messages.
type chatNavigator struct {
	flow   *Flow
	chatID int64
	orch   *submission.Orchestrator
}

func (n *chatNavigator) ToResults(analysisID string) {
	res := n.orch.Result()
	if res == nil || res.AnalysisID != analysisID {
		n.flow.reply(n.chatID, fmt.Sprintf("Analysis %s is ready.", analysisID))
		return
	}
	n.flow.reply(n.chatID, formatResult(res))
}

func (n *chatNavigator) ToLogin() {
	n.flow.reply(n.chatID, msgLoginAgain)
}

// chatSession issues a fresh API token for the Telegram user.
type chatSession struct {
	issuer TokenIssuer
	userID int64
	logger *zap.Logger
}

func (s *chatSession) Token() string {
	token, err := s.issuer.Issue(fmt.Sprintf("telegram:%d", s.userID))
	if err != nil {
		s.logger.Error("failed to issue api token", zap.Error(err))
		return ""
	}
	return token
}

func formatResult(res *backend.AnalysisResult) string {
	var sb strings.Builder
	if res.Recommendation == "Recommended" {
		sb.WriteString("✅ Recommended\n\n")
	} else {
		sb.WriteString("❌ Not recommended\n\n")
	}
	sb.WriteString(res.Justification)
	if len(res.Concerns) > 0 {
		sb.WriteString("\n\n⚠️ Concerns")
		for _, c := range res.Concerns {
			sb.WriteString(fmt.Sprintf("\n• %s: %s", c.Type, c.Description))
		}
	}
	sb.WriteString(fmt.Sprintf("\n\nAnalysis ID: %s", res.AnalysisID))
	return sb.String()
}
