package catalog

import "github.com/remedystack/remedy-engine/internal/models"

// Built-in fallback rules. They are deliberately small: enough to diagnose
// and remediate the common host failures when no catalog files are present.

func defaultIssuePatterns() []models.PatternRule {
	return []models.PatternRule{
		{
			ID:              "ServiceCrashUnexpected",
			Description:     "A service terminated unexpectedly",
			Severity:        models.SeverityHigh,
			SuggestedAction: "REM_RestartService_Generic",
			Signatures: []models.Signature{
				{Field: "EventId", Operator: models.OperatorEquals, Value: 7034},
				{Field: "Source", Operator: models.OperatorEquals, Value: "Service Control Manager"},
				{Field: "Message", Operator: models.OperatorContains, Value: "terminated unexpectedly"},
			},
		},
		{
			ID:              "UnexpectedReboot",
			Description:     "The host rebooted without a recorded shutdown",
			Severity:        models.SeverityCritical,
			SuggestedAction: "REM_CollectDiagnostics",
			Signatures: []models.Signature{
				{Field: "EventId", Operator: models.OperatorEquals, Value: 6008},
			},
		},
		{
			ID:              "DiskSpaceLow",
			Description:     "Free disk space below threshold",
			Severity:        models.SeverityMedium,
			SuggestedAction: "REM_CleanupDiskSpace",
			Signatures: []models.Signature{
				{Field: "FreeSpacePercent", Operator: models.OperatorLessThan, Value: 10},
			},
		},
		{
			ID:              "AuthFailureBurst",
			Description:     "Repeated authentication failures",
			Severity:        models.SeverityMedium,
			SuggestedAction: "REM_CollectDiagnostics",
			Keyword: &models.KeywordRule{
				Field:          "Message",
				Keywords:       []string{"logon", "failure"},
				MinOccurrences: 3,
			},
		},
	}
}

func defaultRCARules() []models.RootCauseRule {
	return []models.RootCauseRule{
		{
			ID:               "RCA_ServiceCrash_DependencyFailure",
			AppliesToPattern: "ServiceCrashUnexpected",
			Description:      "A dependency of the service failed first",
			Confidence:       0.7,
			EvidenceKeywords: map[string][]string{"Message": {"dependency"}},
		},
		{
			ID:               "RCA_ServiceCrash_FaultingModule",
			AppliesToPattern: "ServiceCrashUnexpected",
			Description:      "The service binary or one of its modules is faulting",
			Confidence:       0.4,
			EvidenceKeywords: map[string][]string{"Message": {"faulting", "exception"}},
		},
		{
			ID:               "RCA_DiskSpace_LogGrowth",
			AppliesToPattern: "DiskSpaceLow",
			Description:      "Unbounded log growth is consuming the volume",
			Confidence:       0.6,
			EvidenceKeywords: map[string][]string{"Volume": {"log"}},
		},
		{
			ID:               "RCA_Reboot_PowerLoss",
			AppliesToPattern: "UnexpectedReboot",
			Description:      "Power loss or hard reset",
			Confidence:       0.5,
		},
	}
}

func defaultRemediationRules() []models.RemediationRule {
	return []models.RemediationRule{
		{
			AppliesTo:   "ServiceCrashUnexpected",
			ActionID:    "REM_RestartService_Generic",
			Title:       "Restart the failed service",
			Description: "Restarts the service named by the triggering event",
			Kind:        models.KindFunction,
			Target:      "RestartManagedService",
			Parameters: map[string]string{
				"ServiceName": "MatchedItem.Event.ServiceName",
			},
			RequiresConfirmation: true,
			Impact:               "Brief interruption of the affected service",
			SuccessCriteria:      "Service 'Spooler' should be 'Running'",
		},
		{
			AppliesTo:   "DiskSpaceLow",
			ActionID:    "REM_CleanupDiskSpace",
			Title:       "Clean up temporary files",
			Description: "Removes expired temp and cache files from the affected volume",
			Kind:        models.KindScript,
			Target:      "scripts/cleanup-disk.sh",
			Parameters: map[string]string{
				"Volume": "MatchedItem.Event.Volume",
			},
			RequiresConfirmation: true,
			Impact:               "Deletes temporary files only",
			SuccessCriteria:      "",
			RollbackScript:       "scripts/restore-temp.sh",
		},
		{
			AppliesTo:            "UnexpectedReboot",
			ActionID:             "REM_CollectDiagnostics",
			Title:                "Collect diagnostic bundle",
			Description:          "Operator gathers crash dumps and recent logs for review",
			Kind:                 models.KindManual,
			Target:               "",
			RequiresConfirmation: false,
			Impact:               "None",
			SuccessCriteria:      "",
		},
	}
}

func defaultValidationRules() []models.ValidationRule {
	return []models.ValidationRule{
		{
			ActionID:  "REM_CleanupDiskSpace",
			MergeMode: models.MergeReplace,
			Steps: []models.ValidationStepSpec{
				{
					ID:       "disk-free-recheck",
					Type:     models.ValidateScript,
					Target:   "scripts/check-disk-free.sh",
					Expected: "exit-code-zero",
				},
			},
		},
	}
}

func defaultRollbackRules() []models.RollbackRule {
	return []models.RollbackRule{
		{
			ActionID: "REM_CleanupDiskSpace",
			Steps: []models.RollbackStepSpec{
				{
					ID:          "restore-temp",
					Title:       "Restore cleaned files",
					Description: "Restores files removed during cleanup from the pre-action backup",
					Kind:        models.KindScript,
					Target:      "scripts/restore-temp.sh",
					Parameters:  map[string]string{},
				},
			},
		},
	}
}
