package web

import (
	vm "github.com/ericfisherdev/forumfilter/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/forumfilter/internal/application"
)

// notices maps the redirect status code of an action to the message shown.
var notices = map[string]string{
	"unignored": "Användaren är inte längre ignorerad.",
	"removed":   "Användaren är inte längre ignorerad i tråden.",
	"missing":   "Användaren var redan borttagen.",
	"reset":     "All data har återställts.",
	"imported":  "Data importerad.",
}

// newPopupViewModel builds the page frame shared by every popup state.
func newPopupViewModel(csrf, notice string) vm.PopupViewModel {
	return vm.PopupViewModel{
		CSRFToken:            csrf,
		Notice:               notices[notice],
		UnignoreURL:          "/popup/unignore",
		RemoveLightIgnoreURL: "/popup/light/remove",
		ResetURL:             "/popup/reset",
		ExportURL:            "/popup/export",
		ImportURL:            "/popup/import",
	}
}

// toPopupViewModel converts a presenter view into its page representation.
func toPopupViewModel(view application.PopupView, csrf, notice string) vm.PopupViewModel {
	out := newPopupViewModel(csrf, notice)
	out.TabURL = view.Tab.URL
	out.SummaryHTML = renderSummary(view.Markdown())

	out.Ignored = make([]vm.IgnoredUserViewModel, 0, len(view.Ignored))
	for _, u := range view.Ignored {
		out.Ignored = append(out.Ignored, vm.IgnoredUserViewModel{Username: u})
	}

	out.LightIgnored = make([]vm.ThreadGroupViewModel, 0, len(view.LightIgnored))
	for _, g := range view.LightIgnored {
		out.LightIgnored = append(out.LightIgnored, vm.ThreadGroupViewModel{
			ThreadKey: string(g.ThreadKey),
			ThreadURL: g.ThreadURL,
			Users:     g.Users,
		})
	}
	return out
}
