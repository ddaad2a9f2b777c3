package dashboard

import (
	"context"
	"fmt"

	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/notify"
)

// placeLabel renders "{type} a {district}" for notification texts.
func placeLabel(p model.Params) string {
	bt, d := p.BusinessType, p.District
	switch {
	case bt != "" && d != "":
		return fmt.Sprintf("%s a %s", bt, d)
	case bt != "":
		return bt
	case d != "":
		return d
	}
	return "la zona selezionata"
}

func (s *Service) noticeSuccess(ctx context.Context, op model.Operation, p model.Params, title, desc string) {
	s.notifier.Notify(ctx, notify.KeySuccess(op, p.BusinessType, p.District), model.Notification{
		Title:       title,
		Description: desc,
		Variant:     model.VariantDefault,
	})
}

func (s *Service) noticeFallback(ctx context.Context, op model.Operation, what string) {
	s.notifier.Notify(ctx, notify.KeyFallback(op), model.Notification{
		Title:       "Dati di esempio",
		Description: fmt.Sprintf("I dati reali %s non sono disponibili: vengono mostrati dati di esempio.", what),
		Variant:     model.VariantDefault,
	})
}

func (s *Service) noticeTimeout(ctx context.Context) {
	s.notifier.Notify(ctx, notify.KeyTimeout, model.Notification{
		Title:       "Tempo scaduto",
		Description: "L'analisi ha superato il tempo massimo di attesa. Riprova tra qualche istante.",
		Variant:     model.VariantDestructive,
	})
}
