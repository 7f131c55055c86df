package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/notestore"
	"github.com/taigrr/flint-note/internal/types"
)

// errResult shapes err into the {kind, message} error payload.
func errResult(err error) *mcp.CallToolResult {
	body := errorBody(err)
	payload, _ := json.Marshal(body)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}
}

func errorBody(err error) ErrorBody {
	kind := flinterrors.IO
	message := err.Error()
	var fe *flinterrors.Error
	if errors.As(err, &fe) {
		kind = fe.Kind
		message = fe.Message
	}
	return ErrorBody{Kind: string(kind), Message: message}
}

func toRecord(note *types.Note, includeContent bool) NoteRecord {
	record := NoteRecord{
		ID:          note.ID,
		Type:        note.Type,
		Title:       note.Title,
		Filename:    note.Filename,
		Path:        note.Path,
		Created:     note.Created.UTC().Format(time.RFC3339),
		Updated:     note.Updated.UTC().Format(time.RFC3339),
		Size:        note.Size,
		ContentHash: note.ContentHash,
	}
	if includeContent {
		record.Content = note.Body
	}
	if len(note.Metadata) > 0 {
		record.Metadata = make(map[string]any, len(note.Metadata))
		for key, value := range note.Metadata {
			record.Metadata[key] = value.Raw
		}
	}
	return record
}

func toMetadata(raw map[string]any) types.Metadata {
	if raw == nil {
		return nil
	}
	metadata := make(types.Metadata, len(raw))
	for key, value := range raw {
		metadata[key] = types.FromNative(value)
	}
	return metadata
}

func toInternalRecords(links []types.InternalLink) []InternalLinkRecord {
	records := make([]InternalLinkRecord, 0, len(links))
	for _, link := range links {
		records = append(records, InternalLinkRecord{
			Source:   link.SourceID,
			Target:   link.TargetNoteID,
			Text:     link.TargetRaw,
			Display:  link.Display,
			Position: link.Position,
			Broken:   !link.Resolved(),
		})
	}
	return records
}

func handleCreateNote(ctx context.Context, req *mcp.CallToolRequest, input CreateNoteInput) (*mcp.CallToolResult, NoteRecord, error) {
	note, err := ws.CreateNote(input.Type, input.Title, input.Content, toMetadata(input.Metadata))
	if err != nil {
		return errResult(err), NoteRecord{}, nil
	}
	return nil, toRecord(note, true), nil
}

func handleGetNote(ctx context.Context, req *mcp.CallToolRequest, input GetNoteInput) (*mcp.CallToolResult, NoteRecord, error) {
	note, err := ws.GetNote(input.Identifier)
	if err != nil {
		return errResult(err), NoteRecord{}, nil
	}
	return nil, toRecord(note, true), nil
}

func handleUpdateNote(ctx context.Context, req *mcp.CallToolRequest, input UpdateNoteInput) (*mcp.CallToolResult, UpdateNoteOutput, error) {
	if len(input.Updates) > 0 {
		items := make([]notestore.BatchItem, 0, len(input.Updates))
		for _, item := range input.Updates {
			items = append(items, notestore.BatchItem{
				Identifier: item.Identifier,
				Patch: notestore.UpdatePatch{
					Body:     item.Content,
					Metadata: toMetadata(item.Metadata),
				},
				PriorHash: item.ContentHash,
			})
		}
		results := ws.UpdateNotes(items)
		output := UpdateNoteOutput{Results: make([]UpdateItemResult, 0, len(results))}
		for _, result := range results {
			item := UpdateItemResult{Identifier: result.Identifier, Success: result.Err == nil}
			if result.Err != nil {
				body := errorBody(result.Err)
				item.Error = &body
			} else {
				record := toRecord(result.Note, false)
				item.Note = &record
			}
			output.Results = append(output.Results, item)
		}
		return nil, output, nil
	}

	note, err := ws.UpdateNote(input.Identifier, notestore.UpdatePatch{
		Body:     input.Content,
		Metadata: toMetadata(input.Metadata),
	}, input.ContentHash)
	if err != nil {
		return errResult(err), UpdateNoteOutput{}, nil
	}
	record := toRecord(note, true)
	return nil, UpdateNoteOutput{Note: &record}, nil
}

func handleRenameNote(ctx context.Context, req *mcp.CallToolRequest, input RenameNoteInput) (*mcp.CallToolResult, RenameNoteOutput, error) {
	result, err := ws.RenameNote(input.Identifier, input.NewTitle, input.ContentHash)
	if err != nil {
		return errResult(err), RenameNoteOutput{}, nil
	}
	return nil, RenameNoteOutput{
		Note:                toRecord(result.Note, false),
		BrokenLinksResolved: result.BrokenLinksResolved,
	}, nil
}

func handleMoveNote(ctx context.Context, req *mcp.CallToolRequest, input MoveNoteInput) (*mcp.CallToolResult, MoveNoteOutput, error) {
	result, err := ws.MoveNote(input.Identifier, input.NewType, input.ContentHash)
	if err != nil {
		return errResult(err), MoveNoteOutput{}, nil
	}
	return nil, MoveNoteOutput{
		Note:  toRecord(result.Note, false),
		OldID: result.OldID,
		NewID: result.NewID,
	}, nil
}

func handleDeleteNote(ctx context.Context, req *mcp.CallToolRequest, input DeleteNoteInput) (*mcp.CallToolResult, DeleteNoteOutput, error) {
	result, err := ws.DeleteNote(input.Identifier, input.ContentHash, input.Confirm)
	if err != nil {
		return errResult(err), DeleteNoteOutput{}, nil
	}
	return nil, DeleteNoteOutput{ID: result.ID, Deleted: true, BackupPath: result.BackupPath}, nil
}

func handleSearchNotes(ctx context.Context, req *mcp.CallToolRequest, input SearchNotesInput) (*mcp.CallToolResult, SearchNotesOutput, error) {
	hits, err := ws.SearchNotes(types.SimpleSearchParams{
		Query:      input.Query,
		TypeFilter: input.TypeFilter,
		Limit:      input.Limit,
		UseRegex:   input.UseRegex,
	})
	if err != nil {
		return errResult(err), SearchNotesOutput{}, nil
	}

	output := SearchNotesOutput{Results: make([]SearchHit, 0, len(hits))}
	for _, hit := range hits {
		result := SearchHit{
			ID:       hit.ID,
			Title:    hit.Title,
			Type:     hit.Type,
			Tags:     hit.Tags,
			Score:    hit.Score,
			Snippet:  hit.Snippet,
			Created:  hit.Created.UTC().Format(time.RFC3339),
			Updated:  hit.Updated.UTC().Format(time.RFC3339),
			Filename: hit.Filename,
			Path:     hit.Path,
			Size:     hit.Size,
		}
		if len(hit.Metadata) > 0 {
			result.Metadata = make(map[string]any, len(hit.Metadata))
			for key, value := range hit.Metadata {
				result.Metadata[key] = value.Raw
			}
		}
		output.Results = append(output.Results, result)
	}
	return nil, output, nil
}

func handleSearchNotesAdvanced(ctx context.Context, req *mcp.CallToolRequest, input SearchNotesAdvancedInput) (*mcp.CallToolResult, SearchNotesAdvancedOutput, error) {
	params := types.AdvancedSearchParams{
		Type:            input.Type,
		UpdatedWithin:   input.UpdatedWithin,
		UpdatedBefore:   input.UpdatedBefore,
		CreatedWithin:   input.CreatedWithin,
		CreatedBefore:   input.CreatedBefore,
		ContentContains: input.ContentContains,
		Limit:           input.Limit,
		Offset:          input.Offset,
	}
	for _, filter := range input.MetadataFilters {
		params.MetadataFilters = append(params.MetadataFilters, types.MetadataFilter{
			Key:      filter.Key,
			Value:    filter.Value,
			Operator: filter.Operator,
		})
	}
	for _, sortSpec := range input.Sort {
		params.Sort = append(params.Sort, types.SortSpec{Field: sortSpec.Field, Order: sortSpec.Order})
	}

	result, err := ws.SearchNotesAdvanced(params)
	if err != nil {
		return errResult(err), SearchNotesAdvancedOutput{}, nil
	}

	output := SearchNotesAdvancedOutput{
		Results:     make([]NoteRecord, 0, len(result.Results)),
		Total:       result.Total,
		HasMore:     result.HasMore,
		QueryTimeMs: result.QueryTimeMs,
	}
	for i := range result.Results {
		output.Results = append(output.Results, toRecord(&result.Results[i], false))
	}
	return nil, output, nil
}

func handleSearchNotesSQL(ctx context.Context, req *mcp.CallToolRequest, input SearchNotesSQLInput) (*mcp.CallToolResult, SearchNotesSQLOutput, error) {
	result, err := ws.SearchNotesSQL(types.SQLSearchParams{
		Query:   input.Query,
		Params:  input.Params,
		Limit:   input.Limit,
		Timeout: input.Timeout,
	})
	if err != nil {
		return errResult(err), SearchNotesSQLOutput{}, nil
	}

	output := SearchNotesSQLOutput{
		IsAggregation: result.IsAggregation,
		Columns:       result.Columns,
		Rows:          result.Rows,
	}
	for i := range result.Notes {
		output.Notes = append(output.Notes, toRecord(&result.Notes[i], false))
	}
	return nil, output, nil
}

func handleLinkNotes(ctx context.Context, req *mcp.CallToolRequest, input LinkNotesInput) (*mcp.CallToolResult, LinkNotesOutput, error) {
	note, err := ws.LinkNotes(input.Source, input.Target, input.ContentHash)
	if err != nil {
		return errResult(err), LinkNotesOutput{}, nil
	}
	return nil, LinkNotesOutput{Note: toRecord(note, true)}, nil
}

func handleGetNoteLinks(ctx context.Context, req *mcp.CallToolRequest, input GetNoteLinksInput) (*mcp.CallToolResult, GetNoteLinksOutput, error) {
	graph, err := ws.NoteLinks(input.Identifier)
	if err != nil {
		return errResult(err), GetNoteLinksOutput{}, nil
	}

	output := GetNoteLinksOutput{
		ID:               graph.NoteID,
		OutgoingInternal: toInternalRecords(graph.OutgoingInternal),
		IncomingInternal: toInternalRecords(graph.IncomingInternal),
	}
	output.OutgoingExternal = make([]ExternalLinkRecord, 0, len(graph.OutgoingExternal))
	for _, link := range graph.OutgoingExternal {
		output.OutgoingExternal = append(output.OutgoingExternal, ExternalLinkRecord{
			Source:   link.SourceID,
			URL:      link.URL,
			Label:    link.Label,
			Position: link.Position,
		})
	}
	return nil, output, nil
}

func handleFindBrokenLinks(ctx context.Context, req *mcp.CallToolRequest, input FindBrokenLinksInput) (*mcp.CallToolResult, FindBrokenLinksOutput, error) {
	groups, err := ws.BrokenLinks()
	if err != nil {
		return errResult(err), FindBrokenLinksOutput{}, nil
	}

	output := FindBrokenLinksOutput{Groups: make([]BrokenLinkGroupRecord, 0, len(groups))}
	for _, group := range groups {
		output.Groups = append(output.Groups, BrokenLinkGroupRecord{
			TargetTitle: group.TargetTitle,
			Links:       toInternalRecords(group.Links),
		})
		output.Total += len(group.Links)
	}
	return nil, output, nil
}

func toNoteTypeRecord(info *types.NoteTypeInfo, description string) NoteTypeRecord {
	return NoteTypeRecord{
		Name:        info.Name,
		Path:        info.Path,
		NoteCount:   info.NoteCount,
		Description: description,
	}
}

func handleCreateNoteType(ctx context.Context, req *mcp.CallToolRequest, input CreateNoteTypeInput) (*mcp.CallToolResult, NoteTypeOutput, error) {
	info, err := ws.CreateNoteType(input.Name, input.Description)
	if err != nil {
		return errResult(err), NoteTypeOutput{}, nil
	}
	return nil, NoteTypeOutput{NoteType: toNoteTypeRecord(info, input.Description)}, nil
}

func handleUpdateNoteType(ctx context.Context, req *mcp.CallToolRequest, input UpdateNoteTypeInput) (*mcp.CallToolResult, NoteTypeOutput, error) {
	info, err := ws.UpdateNoteType(input.Name, input.Description)
	if err != nil {
		return errResult(err), NoteTypeOutput{}, nil
	}
	return nil, NoteTypeOutput{NoteType: toNoteTypeRecord(info, input.Description)}, nil
}

func handleGetNoteTypeInfo(ctx context.Context, req *mcp.CallToolRequest, input GetNoteTypeInfoInput) (*mcp.CallToolResult, NoteTypeOutput, error) {
	info, err := ws.GetNoteTypeInfo(input.Name)
	if err != nil {
		return errResult(err), NoteTypeOutput{}, nil
	}
	return nil, NoteTypeOutput{NoteType: toNoteTypeRecord(info, ws.ReadNoteTypeDescription(input.Name))}, nil
}

func handleListNoteTypes(ctx context.Context, req *mcp.CallToolRequest, input ListNoteTypesInput) (*mcp.CallToolResult, ListNoteTypesOutput, error) {
	infos, err := ws.ListNoteTypes()
	if err != nil {
		return errResult(err), ListNoteTypesOutput{}, nil
	}

	output := ListNoteTypesOutput{NoteTypes: make([]NoteTypeRecord, 0, len(infos))}
	for i := range infos {
		output.NoteTypes = append(output.NoteTypes, toNoteTypeRecord(&infos[i], ws.ReadNoteTypeDescription(infos[i].Name)))
	}
	return nil, output, nil
}
