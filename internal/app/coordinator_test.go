// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/stretchr/testify/mock"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/app"
	"github.com/flagdeck/flagdeck/internal/notify"
	"github.com/flagdeck/flagdeck/internal/session"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

var _ = Describe("Coordinator", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness(GinkgoT(), "", time.Hour)
		h.srv.AddUser("root", "toor", true)
		h.srv.AddUser("alice", "wonderland", false)
	})

	withToken := func(token string) {
		h.build(GinkgoT(), token, time.Hour)
	}

	bootstrap := func() error {
		err := h.app.Bootstrap(ctx)
		h.app.Wait()
		return err
	}

	expectDemoted := func() {
		GinkgoHelper()
		Expect(h.app.Session().Token).To(BeEmpty())
		Expect(h.app.Session().User).To(BeNil())
		Expect(h.app.Views().Current()).To(Equal(view.Auth))
		Expect(h.app.Views().Chrome()).To(Equal(view.Chrome{}))
		Expect(h.messages()).To(Equal([]string{"error: " + app.MsgSessionExpired}))
	}

	Describe("Bootstrap", func() {
		It("shows auth with navigation hidden when no token is stored", func() {
			Expect(bootstrap()).To(Succeed())

			Expect(h.app.Views().Visible()).To(Equal([]view.View{view.Auth}))
			Expect(h.app.Views().Chrome()).To(Equal(view.Chrome{}))
			Expect(h.srv.Requests()).To(BeEmpty())
			Expect(h.notes.Active()).To(BeEmpty())
			Expect(h.app.Ready()).To(BeTrue())
		})

		It("restores a valid session into the challenges view", func() {
			withToken(h.srv.TokenFor("alice"))

			Expect(bootstrap()).To(Succeed())

			Expect(h.app.Views().Current()).To(Equal(view.Challenges))
			Expect(h.app.Views().Chrome()).To(Equal(view.Chrome{Navigation: true, AdminEntry: false}))
			Expect(h.app.Session().User.Username).To(Equal("alice"))
			Expect(h.srv.Count(http.MethodGet, api.PathChallenges)).To(Equal(1))
			Expect(h.notes.Active()).To(BeEmpty(), "bootstrap success is silent")
		})

		It("shows the admin entry for admins", func() {
			withToken(h.srv.TokenFor("root"))

			Expect(bootstrap()).To(Succeed())

			Expect(h.app.Views().Chrome().AdminEntry).To(BeTrue())
		})

		It("clears the session when /users/me answers 401", func() {
			withToken(h.srv.TokenFor("alice"))
			h.srv.Fail(http.MethodGet, api.PathCurrent, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

			err := bootstrap()

			Expect(err).To(HaveOccurred())
			authErr, ok := session.AsAuthError(err)
			Expect(ok).To(BeTrue())
			Expect(authErr.Reason).To(Equal(session.ReasonRejected))
			Expect(h.app.Views().Current()).To(Equal(view.Auth))
			snap := h.app.Session()
			Expect(snap.Token).To(BeEmpty())
			Expect(snap.User).To(BeNil())
			persisted, _ := h.durable.Load()
			Expect(persisted).To(BeEmpty())
		})

		It("treats any token value the platform rejects the same way", func() {
			withToken("garbage")

			Expect(bootstrap()).NotTo(Succeed())

			Expect(h.app.Views().Current()).To(Equal(view.Auth))
			Expect(h.app.Session().Token).To(BeEmpty())
		})

		It("drops an expired token without asking the platform", func() {
			withToken(h.srv.ExpiredTokenFor("alice"))

			Expect(bootstrap()).NotTo(Succeed())

			Expect(h.srv.Count(http.MethodGet, api.PathCurrent)).To(BeZero())
			Expect(h.app.Views().Current()).To(Equal(view.Auth))
		})
	})

	Describe("Login", func() {
		It("stores the token and lands on challenges without the admin entry", func() {
			Expect(h.app.Login(ctx, "alice", "wonderland")).To(Succeed())
			h.app.Wait()

			token, ok := h.store.Token()
			Expect(ok).To(BeTrue())
			persisted, _ := h.durable.Load()
			Expect(persisted).To(Equal(token))
			Expect(h.app.Views().Current()).To(Equal(view.Challenges))
			Expect(h.app.Views().Chrome()).To(Equal(view.Chrome{Navigation: true}))
			Expect(h.messages()).To(Equal([]string{"success: Access Granted"}))
		})

		It("leaves the session untouched on bad credentials", func() {
			Expect(h.app.Login(ctx, "alice", "nope")).NotTo(Succeed())

			Expect(h.app.Session().Token).To(BeEmpty())
			Expect(h.app.Views().Current()).To(Equal(view.Auth))
			Expect(h.messages()).To(Equal([]string{"error: Access Denied: Invalid Credentials"}))
		})

		It("keeps an existing session when a second login fails", func() {
			withToken(h.srv.TokenFor("alice"))
			Expect(bootstrap()).To(Succeed())
			before := h.app.Session()

			Expect(h.app.Login(ctx, "root", "wrong")).NotTo(Succeed())

			Expect(h.app.Session()).To(Equal(before))
		})
	})

	Describe("Register", func() {
		It("behaves like login on success", func() {
			Expect(h.app.Register(ctx, api.Credentials{Username: "bob", Password: "pw"})).To(Succeed())
			h.app.Wait()

			Expect(h.app.Views().Current()).To(Equal(view.Challenges))
			Expect(h.app.Session().User.Username).To(Equal("bob"))
			Expect(h.messages()).To(Equal([]string{"success: User Initialized successfully"}))
		})

		It("shows the server reason when the name is taken", func() {
			Expect(h.app.Register(ctx, api.Credentials{Username: "alice", Password: "pw"})).NotTo(Succeed())

			Expect(h.messages()).To(Equal([]string{"error: Registration Failed: Username already registered"}))
			Expect(h.app.Session().Token).To(BeEmpty())
		})

		It("falls back to the generic reason without a detail", func() {
			h.srv.Fail(http.MethodPost, api.PathRegister, http.StatusInternalServerError, ``)

			Expect(h.app.Register(ctx, api.Credentials{Username: "carol", Password: "pw"})).NotTo(Succeed())

			Expect(h.messages()).To(Equal([]string{"error: Registration Failed: Username likely taken"}))
		})
	})

	Describe("Logout", func() {
		It("is idempotent", func() {
			withToken(h.srv.TokenFor("root"))
			Expect(bootstrap()).To(Succeed())

			for range 2 {
				h.app.Logout(ctx)

				snap := h.app.Session()
				Expect(snap.Token).To(BeEmpty())
				Expect(snap.User).To(BeNil())
				Expect(h.app.Views().Current()).To(Equal(view.Auth))
				Expect(h.app.Views().Chrome()).To(Equal(view.Chrome{}))
			}
			Expect(h.srv.Count(http.MethodGet, api.PathCurrent)).To(Equal(1), "logout never calls the platform")
		})
	})

	Describe("Navigate", func() {
		It("refuses hidden views before login", func() {
			err := h.app.Navigate(ctx, view.Scoreboard)

			errutil.AssertErrorFields(GinkgoT(), err, app.CodeNavigationHidden, map[string]any{
				"view": string(view.Scoreboard),
			})
			Expect(h.app.Views().Current()).To(Equal(view.Auth))
		})

		It("keeps exactly one view visible and reloads on every entry", func() {
			withToken(h.srv.TokenFor("alice"))
			Expect(bootstrap()).To(Succeed())

			for _, v := range []view.View{view.Scoreboard, view.Challenges, view.Scoreboard} {
				Expect(h.app.Navigate(ctx, v)).To(Succeed())
				Expect(h.app.Views().Visible()).To(Equal([]view.View{v}))
			}
			h.app.Wait()

			Expect(h.srv.Count(http.MethodGet, api.PathScoreboard)).To(Equal(2))
			Expect(h.srv.Count(http.MethodGet, api.PathChallenges)).To(Equal(2))
			Expect(h.notes.Active()).To(BeEmpty(), "navigation is silent")
		})
	})

	Describe("ChallengeBoard", func() {
		BeforeEach(func() {
			withToken(h.srv.TokenFor("alice"))
		})

		It("renders the explicit empty state for []", func() {
			Expect(bootstrap()).To(Succeed())

			list := h.app.Screen().Challenges()
			Expect(list.Status).To(Equal(view.StatusEmpty))
			Expect(list.Placeholder()).To(Equal("No active challenges found."))
		})

		It("renders fetched challenges", func() {
			h.srv.AddChallenge(api.NewChallenge{Title: "Warmup", Category: "misc", Points: 50, Flag: "flag{w}"})

			Expect(bootstrap()).To(Succeed())

			list := h.app.Screen().Challenges()
			Expect(list.Status).To(Equal(view.StatusReady))
			Expect(list.Cards).To(HaveLen(1))
			Expect(list.Cards[0].Title).To(Equal("Warmup"))
		})

		It("notifies when the load fails", func() {
			h.srv.Fail(http.MethodGet, api.PathChallenges, http.StatusInternalServerError, ``)

			Expect(bootstrap()).To(Succeed())

			Expect(h.messages()).To(Equal([]string{"error: Failed to load challenges"}))
			Expect(h.app.Views().Current()).To(Equal(view.Challenges))
		})

		It("logs out when the load is rejected with 401", func() {
			Expect(bootstrap()).To(Succeed())
			h.srv.Fail(http.MethodGet, api.PathChallenges, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

			Expect(h.app.Challenges.Load(ctx)).NotTo(Succeed())

			Expect(h.app.Views().Current()).To(Equal(view.Auth))
			Expect(h.app.Session().Token).To(BeEmpty())
			Expect(h.messages()).To(Equal([]string{"error: Session expired. Please log in again."}))
		})

		Context("submitting flags", func() {
			var challenge api.Challenge

			BeforeEach(func() {
				challenge = h.srv.AddChallenge(api.NewChallenge{Title: "Warmup", Category: "misc", Points: 100, Flag: "flag{ok}"})
				Expect(bootstrap()).To(Succeed())
			})

			It("announces the points awarded", func() {
				res, err := h.app.Challenges.Submit(ctx, challenge.ID, "flag{ok}")

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Points).To(Equal(100))
				Expect(h.messages()).To(Equal([]string{"success: Correct! +100 Points"}))
			})

			It("shows one error for a wrong flag and changes nothing else", func() {
				before := h.app.Screen().Challenges()
				sessionBefore := h.app.Session()

				_, err := h.app.Challenges.Submit(ctx, challenge.ID, "flag{nope}")

				Expect(err).To(HaveOccurred())
				Expect(h.messages()).To(Equal([]string{"error: Incorrect flag"}))
				Expect(h.app.Views().Current()).To(Equal(view.Challenges))
				Expect(h.app.Session()).To(Equal(sessionBefore))
				Expect(h.app.Screen().Challenges()).To(Equal(before))
			})

			It("never mutates the challenge list, even on success", func() {
				before := h.app.Screen().Challenges()

				_, _ = h.app.Challenges.Submit(ctx, challenge.ID, "flag{ok}")
				_, _ = h.app.Challenges.Submit(ctx, challenge.ID, "flag{ok}")

				Expect(h.app.Screen().Challenges()).To(Equal(before))
				Expect(h.messages()).To(Equal([]string{"success: Correct! +100 Points", "error: Already solved"}))
			})

			It("falls back to a generic message without a detail", func() {
				h.srv.Fail(http.MethodPost, api.PathSubmit, http.StatusInternalServerError, `oops`)

				_, _ = h.app.Challenges.Submit(ctx, challenge.ID, "flag{ok}")

				Expect(h.messages()).To(Equal([]string{"error: Submission Failed"}))
			})

			It("demotes the session when the submission is rejected with 401", func() {
				h.srv.Fail(http.MethodPost, api.PathSubmit, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

				_, err := h.app.Challenges.Submit(ctx, challenge.ID, "flag{ok}")

				Expect(err).To(HaveOccurred())
				expectDemoted()
			})

			It("reports transport failures", func() {
				h.srv.Close()

				_, err := h.app.Challenges.Submit(ctx, challenge.ID, "flag{ok}")

				_, isNet := api.AsNetworkError(err)
				Expect(isNet).To(BeTrue())
				Expect(h.messages()).To(Equal([]string{"error: Error submitting flag"}))
				Expect(h.app.Session().Token).NotTo(BeEmpty())
			})
		})
	})

	Describe("Scoreboard", func() {
		BeforeEach(func() {
			withToken(h.srv.TokenFor("alice"))
			Expect(bootstrap()).To(Succeed())
		})

		It("ranks rows by position and marks the top three elite", func() {
			for _, name := range []string{"bob", "carol"} {
				h.srv.AddUser(name, "pw", false)
			}

			Expect(h.app.Scores.Load(ctx)).To(Succeed())

			rows := h.app.Screen().Scoreboard().Rows
			Expect(rows).To(HaveLen(4))
			for i, row := range rows {
				Expect(row.Rank).To(Equal(i + 1))
			}
			Expect(rows[0].Admin).To(BeTrue())
			Expect(rows[2].Tier).To(Equal(view.TierElite))
			Expect(rows[3].Tier).To(Equal(view.TierActive))
		})

		It("notifies when the load fails", func() {
			h.srv.Fail(http.MethodGet, api.PathScoreboard, http.StatusBadGateway, ``)

			Expect(h.app.Scores.Load(ctx)).NotTo(Succeed())

			Expect(h.messages()).To(Equal([]string{"error: Failed to load scoreboard"}))
		})

		It("demotes the session when the load is rejected with 401", func() {
			h.srv.Fail(http.MethodGet, api.PathScoreboard, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

			Expect(h.app.Scores.Load(ctx)).NotTo(Succeed())

			expectDemoted()
		})
	})

	Describe("AdminPanel", func() {
		var target api.Challenge

		BeforeEach(func() {
			target = h.srv.AddChallenge(api.NewChallenge{Title: "Warmup", Points: 50, Flag: "f"})
			withToken(h.srv.TokenFor("root"))
			Expect(bootstrap()).To(Succeed())
			Expect(h.app.Navigate(ctx, view.Admin)).To(Succeed())
			h.app.Wait()
		})

		It("lists challenges with their points", func() {
			Expect(h.app.Screen().Admin().Items).To(Equal([]view.AdminItem{{ID: target.ID, Label: "Warmup (50 pts)"}}))
		})

		It("sends nothing when the delete is not confirmed", func() {
			h.confirm.On("Confirm", mock.Anything, app.MsgConfirmDelete).Return(false).Once()

			err := h.app.Admin.Delete(ctx, 7)

			errutil.AssertErrorFields(GinkgoT(), err, app.CodeDeclined, map[string]any{
				"challenge_id": int64(7),
			})
			Expect(h.srv.Count(http.MethodDelete, api.ChallengePath(7))).To(BeZero())
			Expect(h.notes.Active()).To(BeEmpty())
			h.confirm.AssertExpectations(GinkgoT())
		})

		It("deletes after confirmation and reloads the list", func() {
			h.confirm.On("Confirm", mock.Anything, app.MsgConfirmDelete).Return(true).Once()

			Expect(h.app.Admin.Delete(ctx, target.ID)).To(Succeed())
			h.app.Wait()

			Expect(h.messages()).To(Equal([]string{"success: Challenge Deleted"}))
			Expect(h.app.Screen().Admin().Items).To(BeEmpty())
			Expect(h.srv.Count(http.MethodGet, api.PathChallenges)).To(Equal(3))
		})

		It("reports a rejected delete", func() {
			h.confirm.On("Confirm", mock.Anything, mock.Anything).Return(true)

			Expect(h.app.Admin.Delete(ctx, 999)).NotTo(Succeed())

			Expect(h.messages()).To(Equal([]string{"error: Delete failed"}))
		})

		It("reports a delete that never reached the platform", func() {
			h.confirm.On("Confirm", mock.Anything, mock.Anything).Return(true)
			h.srv.Close()

			Expect(h.app.Admin.Delete(ctx, target.ID)).NotTo(Succeed())

			Expect(h.messages()).To(Equal([]string{"error: Error deleting challenge"}))
		})

		It("creates a challenge, resets the form and reloads", func() {
			h.app.Screen().SetForm(view.AdminForm{Title: "XOR", Points: "200", Category: "crypto", Flag: "flag{x}"})

			created, err := h.app.Admin.CreateFromForm(ctx)
			h.app.Wait()

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Title).To(Equal("XOR"))
			Expect(h.messages()).To(Equal([]string{"success: Challenge Injected Successfully"}))
			Expect(h.app.Screen().Form()).To(Equal(view.AdminForm{}))
			Expect(h.app.Screen().Admin().Items).To(HaveLen(2))
		})

		It("rejects an incomplete form without a request", func() {
			h.app.Screen().SetForm(view.AdminForm{Title: "XOR", Points: "many", Flag: "f"})

			_, err := h.app.Admin.CreateFromForm(ctx)

			Expect(err).To(HaveOccurred())
			Expect(h.srv.Count(http.MethodPost, api.PathChallenges)).To(BeZero())
			Expect(h.messages()).To(HaveLen(1))
			Expect(h.messages()[0]).To(HavePrefix("error: Creation Failed: points must be a whole number"))
		})

		It("marks the list failed without notifying", func() {
			h.srv.Fail(http.MethodGet, api.PathChallenges, http.StatusInternalServerError, ``)

			Expect(h.app.Admin.Load(ctx)).NotTo(Succeed())

			Expect(h.app.Screen().Admin().Placeholder()).To(Equal("Error loading challenges"))
			Expect(h.notes.Active()).To(BeEmpty())
		})

		Context("when the platform answers 401", func() {
			It("demotes the session on a list load", func() {
				h.srv.Fail(http.MethodGet, api.PathChallenges, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

				Expect(h.app.Admin.Load(ctx)).NotTo(Succeed())

				Expect(h.app.Screen().Admin().Placeholder()).To(Equal("Error loading challenges"))
				expectDemoted()
			})

			It("demotes the session on create", func() {
				h.srv.Fail(http.MethodPost, api.PathChallenges, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

				_, err := h.app.Admin.Create(ctx, api.NewChallenge{Title: "x", Points: 1, Flag: "f"})

				Expect(err).To(HaveOccurred())
				expectDemoted()
			})

			It("demotes the session on delete", func() {
				h.confirm.On("Confirm", mock.Anything, app.MsgConfirmDelete).Return(true).Once()
				h.srv.Fail(http.MethodDelete, api.ChallengePath(target.ID), http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

				Expect(h.app.Admin.Delete(ctx, target.ID)).NotTo(Succeed())

				expectDemoted()
				h.confirm.AssertExpectations(GinkgoT())
			})
		})
	})

	Describe("AdminPanel as a non-admin", func() {
		It("lets the platform reject the create", func() {
			withToken(h.srv.TokenFor("alice"))
			Expect(bootstrap()).To(Succeed())

			_, err := h.app.Admin.Create(ctx, api.NewChallenge{Title: "x", Points: 1, Flag: "f"})

			Expect(err).To(HaveOccurred())
			Expect(h.messages()).To(Equal([]string{"error: Creation Failed: Not enough permissions"}))
			Expect(h.app.Session().Token).NotTo(BeEmpty(), "403 does not end the session")
		})
	})

	Describe("superseded loads", func() {
		It("still render into the hidden view when they resolve", func() {
			withToken(h.srv.TokenFor("alice"))
			Expect(bootstrap()).To(Succeed())
			release := h.srv.Hold(http.MethodGet, api.PathScoreboard)

			Expect(h.app.Navigate(ctx, view.Scoreboard)).To(Succeed())
			Eventually(func() int { return h.srv.Count(http.MethodGet, api.PathScoreboard) }).Should(Equal(1))
			Expect(h.app.Navigate(ctx, view.Challenges)).To(Succeed())
			Expect(h.app.Screen().Scoreboard().Status).To(Equal(view.StatusLoading))

			release()
			h.app.Wait()

			Expect(h.app.Views().Current()).To(Equal(view.Challenges))
			Expect(h.app.Screen().Scoreboard().Status).To(Equal(view.StatusReady))
		})

		It("do not log out a newer session when an old token is rejected", func() {
			h.srv.AddUser("bob", "builder", false)
			withToken(h.srv.TokenFor("alice"))
			Expect(bootstrap()).To(Succeed())
			aliceToken := h.app.Session().Token
			h.srv.Fail(http.MethodGet, api.PathScoreboard, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
			release := h.srv.Hold(http.MethodGet, api.PathScoreboard)

			Expect(h.app.Navigate(ctx, view.Scoreboard)).To(Succeed())
			Eventually(func() int { return h.srv.Count(http.MethodGet, api.PathScoreboard) }).Should(Equal(1))
			Expect(h.app.Login(ctx, "bob", "builder")).To(Succeed())

			release()
			h.app.Wait()

			snap := h.app.Session()
			Expect(snap.Token).NotTo(BeEmpty())
			Expect(snap.Token).NotTo(Equal(aliceToken))
			Expect(snap.User).NotTo(BeNil())
			Expect(snap.User.Username).To(Equal("bob"))
			Expect(h.app.Views().Current()).To(Equal(view.Challenges))
			Expect(h.messages()).To(Equal([]string{"success: " + app.MsgAccessGranted}))
		})
	})
})

var _ = Describe("Notification lifetime", func() {
	It("removes the wrong-flag error after three seconds", func() {
		ctx := context.Background()
		h := newHarness(GinkgoT(), "", notify.DefaultTTL)
		h.srv.AddUser("alice", "pw", false)
		c := h.srv.AddChallenge(api.NewChallenge{Title: "Warmup", Points: 10, Flag: "flag{ok}"})
		h.build(GinkgoT(), h.srv.TokenFor("alice"), notify.DefaultTTL)
		Expect(h.app.Bootstrap(ctx)).To(Succeed())
		h.app.Wait()

		_, _ = h.app.Challenges.Submit(ctx, c.ID, "flag{bad}")

		active := h.notes.Active()
		Expect(active).To(HaveLen(1))
		Expect(active[0].Kind).To(Equal(notify.KindError))
		Expect(active[0].Message).To(Equal("Incorrect flag"))
		Expect(active[0].ExpiresAt.Sub(active[0].CreatedAt)).To(Equal(3 * time.Second))
		Consistently(h.notes.Active, "2s", "200ms").Should(HaveLen(1))
		Eventually(h.notes.Active, "2s", "100ms").Should(BeEmpty())
	})
})

var _ = Describe("Restore", func() {
	It("validates without changing the view", func() {
		ctx := context.Background()
		h := newHarness(GinkgoT(), "", time.Hour)
		h.srv.AddUser("alice", "pw", false)
		h.build(GinkgoT(), h.srv.TokenFor("alice"), time.Hour)

		user, err := h.app.Restore(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(user.Username).To(Equal("alice"))
		Expect(h.app.Views().Current()).To(Equal(view.Auth))
		Expect(h.srv.Count(http.MethodGet, api.PathChallenges)).To(BeZero())
	})

	It("logs out when nothing is stored", func() {
		h := newHarness(GinkgoT(), "", time.Hour)

		_, err := h.app.Restore(context.Background())

		authErr, ok := session.AsAuthError(err)
		Expect(ok).To(BeTrue())
		Expect(authErr.Reason).To(Equal(session.ReasonMissing))
		Expect(h.srv.Requests()).To(BeEmpty())
	})
})
