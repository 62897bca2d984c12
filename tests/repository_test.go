// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/repository"
	testingutil "github.com/alialmasood/examination-committee-sub003/testing"
	"github.com/alialmasood/examination-committee-sub003/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCampaignRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByID", func(t *testing.T) {
			campaign := &models.Campaign{
				UUID:         uuid.New(),
				Title:        "Midterm exam hall assignments",
				Message:      "Hall assignments for the midterm exams are now available.",
				Priority:     models.CampaignPriorityHigh,
				AudienceType: models.AudienceTypeAll,
				Status:       models.CampaignStatusDraft,
				CreatedBy:    1,
			}
			require.NoError(t, campaign.BeforeCreate())
			require.NoError(t, repo.Save(ctx, campaign))
			require.NotZero(t, campaign.ID)

			found, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, campaign.UUID, found.UUID)
			assert.Equal(t, models.CampaignStatusDraft, found.Status)
			assert.Equal(t, 0, found.TotalRecipients)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			found, err := repo.ByID(ctx, 999999)
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByUUID", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft)
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, campaign.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, campaign.ID, found.ID)

			missing, err := repo.ByUUID(ctx, uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ByIDWithChannels", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft,
				models.ChannelTypeEmail, models.ChannelTypeWhatsApp)
			require.NoError(t, err)

			found, err := repo.ByIDWithChannels(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			require.Len(t, found.Channels, 2)
			assert.Equal(t, models.ChannelStatusPending, found.Channels[0].Status)
		})

		t.Run("ByFilterAndCount", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			for i := 0; i < 3; i++ {
				_, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft)
				require.NoError(t, err)
			}
			_, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing)
			require.NoError(t, err)

			status := models.CampaignStatusDraft
			drafts, err := repo.ByFilter(ctx, models.CampaignFilter{Status: &status}, 10, 0)
			require.NoError(t, err)
			assert.Len(t, drafts, 3)

			count, err := repo.Count(ctx, models.CampaignFilter{Status: &status})
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			page, err := repo.ByFilter(ctx, models.CampaignFilter{Status: &status}, 2, 2)
			require.NoError(t, err)
			assert.Len(t, page, 1)
		})

		t.Run("UpdateStatusGuard", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft)
			require.NoError(t, err)

			err = repo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusDraft, models.CampaignStatusProcessing)
			require.NoError(t, err)

			found, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, models.CampaignStatusProcessing, found.Status)

			// The row already left draft, so the same guarded transition loses.
			err = repo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusDraft, models.CampaignStatusProcessing)
			assert.ErrorIs(t, err, repository.ErrStatusConflict)
		})

		t.Run("ClaimProcessing", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			base := time.Now().UTC().Add(-time.Hour)
			var processing []*models.Campaign
			for i := 0; i < 3; i++ {
				campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing)
				require.NoError(t, err)
				// Spread creation times so claim order is deterministic.
				err = testDB.DB.Model(&models.Campaign{}).
					Where("id = ?", campaign.ID).
					Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error
				require.NoError(t, err)
				processing = append(processing, campaign)
			}
			draft, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft)
			require.NoError(t, err)

			claimed, err := repo.ClaimProcessing(ctx, 2)
			require.NoError(t, err)
			require.Len(t, claimed, 2)
			assert.Equal(t, processing[0].ID, claimed[0].ID)
			assert.Equal(t, processing[1].ID, claimed[1].ID)
			for _, c := range claimed {
				assert.NotNil(t, c.ClaimedAt)
			}

			// The remaining processing campaign is claimable; the two just
			// claimed and the draft are not.
			second, err := repo.ClaimProcessing(ctx, 10)
			require.NoError(t, err)
			require.Len(t, second, 1)
			assert.Equal(t, processing[2].ID, second[0].ID)
			assert.NotEqual(t, draft.ID, second[0].ID)

			third, err := repo.ClaimProcessing(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, third)
		})

		t.Run("ClaimProcessingConcurrentClaimsAreDisjoint", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			ids := make(map[uint]struct{}, 4)
			for i := 0; i < 4; i++ {
				campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing)
				require.NoError(t, err)
				ids[campaign.ID] = struct{}{}
			}

			// Both claimers hold their transactions open while the other
			// claims, so the skip-locked path decides who gets what.
			var barrier sync.WaitGroup
			barrier.Add(2)

			type claimResult struct {
				ids []uint
				err error
			}
			results := make(chan claimResult, 2)
			for i := 0; i < 2; i++ {
				go func() {
					var claimedIDs []uint
					err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
						claimed, err := repo.ClaimProcessing(txCtx, 2)
						if err != nil {
							return err
						}
						for _, c := range claimed {
							claimedIDs = append(claimedIDs, c.ID)
						}
						barrier.Done()
						barrier.Wait()
						return nil
					})
					results <- claimResult{ids: claimedIDs, err: err}
				}()
			}

			seen := make(map[uint]int, 4)
			for i := 0; i < 2; i++ {
				res := <-results
				require.NoError(t, res.err)
				assert.Len(t, res.ids, 2)
				for _, id := range res.ids {
					seen[id]++
				}
			}

			// Every campaign claimed exactly once: a disjoint union.
			require.Len(t, seen, 4)
			for id, n := range seen {
				assert.Equal(t, 1, n, "campaign %d claimed more than once", id)
				assert.Contains(t, ids, id)
			}
		})

		t.Run("ClaimProcessingReclaimsStale", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing)
			require.NoError(t, err)

			claimed, err := repo.ClaimProcessing(ctx, 1)
			require.NoError(t, err)
			require.Len(t, claimed, 1)

			// A fresh claim shields the row.
			again, err := repo.ClaimProcessing(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, again)

			// Age the claim past the stale window, as if the claiming worker died.
			stale := time.Now().UTC().Add(-11 * time.Minute)
			err = testDB.DB.Model(&models.Campaign{}).
				Where("id = ?", campaign.ID).
				Update("claimed_at", stale).Error
			require.NoError(t, err)

			reclaimed, err := repo.ClaimProcessing(ctx, 1)
			require.NoError(t, err)
			require.Len(t, reclaimed, 1)
			assert.Equal(t, campaign.ID, reclaimed[0].ID)
		})

		t.Run("ClaimProcessingZeroLimit", func(t *testing.T) {
			claimed, err := repo.ClaimProcessing(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, claimed)
		})

		t.Run("FinalizeIdempotent", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing)
			require.NoError(t, err)
			_, err = repo.ClaimProcessing(ctx, 10)
			require.NoError(t, err)

			token := uuid.New()
			err = repo.Finalize(ctx, campaign.ID, models.CampaignStatusSent, 2, token)
			require.NoError(t, err)

			found, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, models.CampaignStatusSent, found.Status)
			assert.Equal(t, 2, found.TotalRecipients)
			require.NotNil(t, found.SentAt)
			assert.Nil(t, found.ClaimedAt)
			firstSentAt := *found.SentAt

			// Replaying the same token must not count recipients twice.
			err = repo.Finalize(ctx, campaign.ID, models.CampaignStatusSent, 2, token)
			require.NoError(t, err)

			found, err = repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, found.TotalRecipients)
			require.NotNil(t, found.SentAt)
			assert.WithinDuration(t, firstSentAt, *found.SentAt, time.Second)

			// A new token is a new delivery cycle and adds to the total, but
			// the original send time is kept.
			err = repo.Finalize(ctx, campaign.ID, models.CampaignStatusSent, 3, uuid.New())
			require.NoError(t, err)

			found, err = repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, 5, found.TotalRecipients)
			assert.WithinDuration(t, firstSentAt, *found.SentAt, time.Second)
		})

		t.Run("FinalizeRejectsNonTerminalStatus", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing)
			require.NoError(t, err)

			err = repo.Finalize(ctx, campaign.ID, models.CampaignStatusProcessing, 1, uuid.New())
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCampaignChannelRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCampaignChannelRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ListByCampaign", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft,
				models.ChannelTypeEmail, models.ChannelTypeSMS, models.ChannelTypeSystemNotification)
			require.NoError(t, err)

			other, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft, models.ChannelTypeEmail)
			require.NoError(t, err)

			channels, err := repo.ListByCampaign(ctx, campaign.ID)
			require.NoError(t, err)
			require.Len(t, channels, 3)
			assert.Equal(t, models.ChannelTypeEmail, channels[0].ChannelType)
			assert.Equal(t, models.ChannelTypeSMS, channels[1].ChannelType)
			assert.Equal(t, models.ChannelTypeSystemNotification, channels[2].ChannelType)
			for _, ch := range channels {
				assert.NotEqual(t, other.Channels[0].ID, ch.ID)
			}
		})

		t.Run("ByUUID", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusDraft, models.ChannelTypeWhatsApp)
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, campaign.Channels[0].UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, campaign.ID, found.CampaignID)

			missing, err := repo.ByUUID(ctx, uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("UpdateStatusAndLastError", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing, models.ChannelTypeEmail)
			require.NoError(t, err)
			channelID := campaign.Channels[0].ID

			err = repo.UpdateStatus(ctx, channelID, models.ChannelStatusFailed, utils.ToPtr("smtp connect timeout"))
			require.NoError(t, err)

			found, err := repo.ByID(ctx, channelID)
			require.NoError(t, err)
			assert.Equal(t, models.ChannelStatusFailed, found.Status)
			require.NotNil(t, found.LastError)
			assert.Equal(t, "smtp connect timeout", *found.LastError)
			assert.NotNil(t, found.LastAttemptAt)

			// Failed is terminal: a later attempt must not revert it.
			err = repo.UpdateStatus(ctx, channelID, models.ChannelStatusSent, nil)
			assert.ErrorIs(t, err, repository.ErrStatusConflict)

			found, err = repo.ByID(ctx, channelID)
			require.NoError(t, err)
			assert.Equal(t, models.ChannelStatusFailed, found.Status)
			require.NotNil(t, found.LastError)
			assert.Equal(t, "smtp connect timeout", *found.LastError)
		})

		t.Run("LockByIDInsideTransaction", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing, models.ChannelTypeSMS)
			require.NoError(t, err)
			channelID := campaign.Channels[0].ID

			err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				locked, err := repo.LockByID(txCtx, channelID)
				require.NoError(t, err)
				require.NotNil(t, locked)
				assert.Equal(t, models.ChannelStatusPending, locked.Status)

				missing, err := repo.LockByID(txCtx, 999999)
				require.NoError(t, err)
				assert.Nil(t, missing)
				return nil
			})
			require.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestChannelProfileRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewChannelProfileRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ListActiveNewestFirst", func(t *testing.T) {
			old, err := fixtures.CreateTestProfile(models.ChannelTypeEmail, "registrar@college.edu.iq", true)
			require.NoError(t, err)
			_, err = fixtures.CreateTestProfile(models.ChannelTypeEmail, "retired@college.edu.iq", false)
			require.NoError(t, err)
			newest, err := fixtures.CreateTestProfile(models.ChannelTypeEmail, "exams@college.edu.iq", true)
			require.NoError(t, err)

			// Push the older profile back so ordering does not depend on
			// sub-second insert timing.
			err = testDB.DB.Model(&models.ChannelProfile{}).
				Where("id = ?", old.ID).
				Update("created_at", time.Now().UTC().Add(-time.Hour)).Error
			require.NoError(t, err)

			active, err := repo.ListActive(ctx)
			require.NoError(t, err)
			require.Len(t, active, 2)
			assert.Equal(t, newest.ID, active[0].ID)
			assert.Equal(t, old.ID, active[1].ID)
		})

		t.Run("ByTypeAndIdentity", func(t *testing.T) {
			profile, err := fixtures.CreateTestProfile(models.ChannelTypeSMS, "COLLEGE", true)
			require.NoError(t, err)

			found, err := repo.ByTypeAndIdentity(ctx, models.ChannelTypeSMS, "COLLEGE")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, profile.ID, found.ID)

			missing, err := repo.ByTypeAndIdentity(ctx, models.ChannelTypeWhatsApp, "COLLEGE")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestChannelDeliveryRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewChannelDeliveryRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		campaign, err := fixtures.CreateTestCampaign(models.CampaignStatusProcessing, models.ChannelTypeEmail)
		require.NoError(t, err)
		channelID := campaign.Channels[0].ID

		seedDelivery := func(status models.DeliveryStatus, recipient string) *models.ChannelDelivery {
			delivery := &models.ChannelDelivery{
				UUID:       uuid.New(),
				CampaignID: campaign.ID,
				ChannelID:  channelID,
				Recipient:  &recipient,
				Status:     status,
			}
			require.NoError(t, delivery.BeforeCreate())
			require.NoError(t, repo.Save(ctx, delivery))
			return delivery
		}

		t.Run("ListByCampaign", func(t *testing.T) {
			for i := 0; i < 3; i++ {
				seedDelivery(models.DeliveryStatusSuccess, fmt.Sprintf("077011122%02d", i))
			}
			seedDelivery(models.DeliveryStatusFailed, "07709998877")

			deliveries, err := repo.ListByCampaign(ctx, campaign.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, deliveries, 4)

			page, err := repo.ListByCampaign(ctx, campaign.ID, 2, 2)
			require.NoError(t, err)
			assert.Len(t, page, 2)
		})

		t.Run("CountByCampaignAndStatus", func(t *testing.T) {
			success, err := repo.CountByCampaignAndStatus(ctx, campaign.ID, models.DeliveryStatusSuccess)
			require.NoError(t, err)
			assert.Equal(t, int64(3), success)

			failed, err := repo.CountByCampaignAndStatus(ctx, campaign.ID, models.DeliveryStatusFailed)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failed)
		})

		return nil
	})
	require.NoError(t, err)
}
